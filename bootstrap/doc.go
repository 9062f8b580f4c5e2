// Package bootstrap runs a speakerid process: it owns the typed config, the
// logger and the component registry, and drives startup, signal handling and
// graceful shutdown.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(dbComponent)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    // wire services against started components
//	    return nil
//	})
//	err = app.Run(ctx)
//
// Long-running commands use Run; one-shot CLI commands use RunTask, which has
// the same startup and shutdown but returns when the task does.
package bootstrap
