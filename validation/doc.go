// Package validation checks request input before it reaches the identity
// services. Struct tags cover HTTP request bodies; the fluent Validator covers
// operation arguments that are checked in code.
//
//	v := validation.New()
//	v.PositiveID("meeting_id", meetingID).Required("speaker_label", label)
//	if err := v.Validate(); err != nil { return err }
package validation
