package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerid/api"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/server/middleware"
	"github.com/kbukum/speakerid/similarity"
	"github.com/kbukum/speakerid/speaker"
	"github.com/kbukum/speakerid/store/memstore"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testAPI struct {
	t      *testing.T
	engine *gin.Engine
	store  *memstore.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	matcher := similarity.NewMatcher(similarity.Config{Dimension: 4})
	opts := []speaker.Option{speaker.WithLogger(logger.Nop())}

	engine := gin.New()
	engine.Use(middleware.Recovery(logger.Nop()), middleware.BodySizeLimit("64KB"))
	api.NewHandler(
		speaker.NewService(store, matcher, opts...),
		speaker.NewResolver(store),
		speaker.NewSuggester(store, matcher, opts...),
	).Register(engine)

	return &testAPI{t: t, engine: engine, store: store}
}

// do sends body (marshaled unless it is a string) and decodes the envelope.
func (a *testAPI) do(method, path string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.engine.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("%s %s: invalid JSON %q: %v", method, path, rr.Body.String(), err)
		}
	}
	return rr.Code, env
}

// must sends a request, requires wantStatus and decodes data into out.
func (a *testAPI) must(method, path string, body any, wantStatus int, out any) envelope {
	a.t.Helper()
	code, env := a.do(method, path, body)
	if code != wantStatus {
		msg := ""
		if env.Error != nil {
			msg = env.Error.Code + ": " + env.Error.Message
		}
		a.t.Fatalf("%s %s: expected %d, got %d (%s)", method, path, wantStatus, code, msg)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			a.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
	return env
}

func (a *testAPI) importMeeting(title string, hints string, segs ...map[string]any) int64 {
	a.t.Helper()
	body := map[string]any{"title": title, "segments": segs}
	if hints != "" {
		body["hints"] = json.RawMessage(hints)
	}
	var res speaker.ImportResult
	a.must(http.MethodPost, "/api/v1/meetings", body, http.StatusCreated, &res)
	return res.Meeting.ID
}

func seg(label string, start, end float64, text string) map[string]any {
	return map[string]any{"speaker": label, "start": start, "end": end, "text": text}
}

type identity struct {
	SegmentID   int64   `json:"segment_id"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Label       string  `json:"label"`
	PersonID    *string `json:"person_id"`
	State       string  `json:"state"`
	DisplayName string  `json:"display_name"`
}

func TestAPI_IdentityWorkflow(t *testing.T) {
	a := newTestAPI(t)

	meetingID := a.importMeeting("Council",
		`{"centroids":{"SPEAKER_00":[1,0,0,0],"SPEAKER_01":[0,1,0,0]}}`,
		seg("SPEAKER_00", 0, 10, "Good evening everyone."),
		seg("SPEAKER_01", 10, 20, "Thanks."),
		seg("SPEAKER_00", 20, 30, "Next item."),
	)
	segmentsPath := fmt.Sprintf("/api/v1/meetings/%d/segments", meetingID)

	var ids []identity
	env := a.must(http.MethodGet, segmentsPath, nil, http.StatusOK, &ids)
	if len(ids) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(ids))
	}
	if env.Meta["total"] != float64(3) {
		t.Errorf("expected meta total 3, got %v", env.Meta["total"])
	}
	for _, id := range ids {
		if id.State != string(speaker.StateUnresolved) || id.DisplayName != id.Label {
			t.Errorf("expected unresolved raw label, got %+v", id)
		}
	}

	var alias speaker.AssignAliasResult
	a.must(http.MethodPost, fmt.Sprintf("/api/v1/meetings/%d/aliases", meetingID),
		map[string]any{"label": "SPEAKER_00", "new_name": "Alice"}, http.StatusOK, &alias)
	if alias.SegmentsUpdated != 2 {
		t.Errorf("expected 2 segments updated, got %d", alias.SegmentsUpdated)
	}
	if !alias.PersonCreated || alias.Person.Name != "Alice" {
		t.Errorf("expected Alice to be created, got %+v", alias.Person)
	}
	if !alias.FingerprintSaved {
		t.Error("expected fingerprint to be saved from the hints centroid")
	}
	aliceID := alias.Person.ID.String()

	a.must(http.MethodGet, segmentsPath, nil, http.StatusOK, &ids)
	for _, id := range ids {
		want := "SPEAKER_01"
		if id.Label == "SPEAKER_00" {
			want = "Alice"
		}
		if id.DisplayName != want {
			t.Errorf("segment %d: expected %q, got %q", id.SegmentID, want, id.DisplayName)
		}
	}

	// A later meeting with a similar voice is suggested as Alice.
	second := a.importMeeting("Council again",
		`{"centroids":{"SPEAKER_03":[0.9,0.1,0,0]}}`,
		seg("SPEAKER_03", 0, 5, "Hello again."),
	)
	var sugg speaker.MeetingSuggestions
	a.must(http.MethodGet, fmt.Sprintf("/api/v1/meetings/%d/suggestions?refresh=true", second), nil, http.StatusOK, &sugg)
	if len(sugg.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(sugg.Suggestions))
	}
	best := sugg.Suggestions[0].Best
	if best == nil || best.PersonID.String() != aliceID || best.PersonName != "Alice" {
		t.Fatalf("expected Alice as best match, got %+v", best)
	}

	var match speaker.MatchResult
	a.must(http.MethodPost, "/api/v1/fingerprints/match",
		map[string]any{"embedding": []float32{1, 0, 0, 0}}, http.StatusOK, &match)
	if len(match.Matches) != 1 || match.Matches[0].PersonName != "Alice" {
		t.Errorf("expected one match for Alice, got %+v", match.Matches)
	}

	var bob speaker.Person
	a.must(http.MethodPost, "/api/v1/people", map[string]any{"name": " Bob  Builder "}, http.StatusCreated, &bob)
	if bob.Name != "Bob Builder" {
		t.Errorf("expected cleaned name, got %q", bob.Name)
	}
	fpPath := fmt.Sprintf("/api/v1/people/%s/fingerprint", bob.ID)
	a.must(http.MethodPut, fpPath, map[string]any{"embedding": []float32{0, 1, 0, 0}}, http.StatusCreated, nil)
	a.must(http.MethodPut, fpPath, map[string]any{"meeting_id": meetingID, "label": "SPEAKER_01"}, http.StatusOK, nil)

	var assigned speaker.AssignPersonResult
	a.must(http.MethodPost, "/api/v1/segments/assign-person",
		map[string]any{"segment_ids": []int64{ids[1].SegmentID}, "person_id": bob.ID}, http.StatusOK, &assigned)
	if assigned.SegmentsUpdated != 1 || assigned.Person.ID != bob.ID {
		t.Errorf("expected Bob on one segment, got %+v", assigned)
	}

	var split speaker.SplitResult
	a.must(http.MethodPost, fmt.Sprintf("/api/v1/segments/%d/split", ids[0].SegmentID),
		map[string]any{"text1": "Good", "text2": "evening everyone."}, http.StatusCreated, &split)
	if split.First.EndTime != split.Second.StartTime || split.Second.EndTime != 10 {
		t.Errorf("expected contiguous halves ending at 10, got %+v", split)
	}

	var relabel speaker.RelabelResult
	a.must(http.MethodPost, "/api/v1/segments/relabel",
		map[string]any{"segment_ids": []int64{ids[2].SegmentID}, "label": "SPEAKER_09"}, http.StatusOK, &relabel)
	if relabel.PersonID != nil {
		t.Errorf("expected relabel to an unaliased label to clear the person, got %v", relabel.PersonID)
	}

	a.must(http.MethodGet, segmentsPath, nil, http.StatusOK, &ids)
	if len(ids) != 4 {
		t.Fatalf("expected 4 segments after split, got %d", len(ids))
	}

	code, env := a.do(http.MethodPost, "/api/v1/segments/assign-person",
		map[string]any{"segment_ids": []int64{ids[0].SegmentID, ids[0].SegmentID + 100}, "person_id": bob.ID})
	if code != http.StatusNotFound {
		t.Errorf("expected 404 for a missing segment, got %d (%+v)", code, env.Error)
	}
}

func TestAPI_AssignPersonAcrossMeetings(t *testing.T) {
	a := newTestAPI(t)
	m1 := a.importMeeting("One", "", seg("SPEAKER_00", 0, 1, "a"))
	m2 := a.importMeeting("Two", "", seg("SPEAKER_00", 0, 1, "b"))

	var s1, s2 []identity
	a.must(http.MethodGet, fmt.Sprintf("/api/v1/meetings/%d/segments", m1), nil, http.StatusOK, &s1)
	a.must(http.MethodGet, fmt.Sprintf("/api/v1/meetings/%d/segments", m2), nil, http.StatusOK, &s2)

	code, env := a.do(http.MethodPost, "/api/v1/segments/assign-person", map[string]any{
		"segment_ids": []int64{s1[0].SegmentID, s2[0].SegmentID},
		"new_name":    "Carol",
	})
	if code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", code)
	}
	if env.Error == nil || env.Error.Code != "CONFLICT" {
		t.Errorf("expected CONFLICT body, got %+v", env.Error)
	}
}

func TestAPI_Errors(t *testing.T) {
	a := newTestAPI(t)
	big := `{"name":"` + string(bytes.Repeat([]byte("x"), 70<<10)) + `"}`

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"bad meeting id", http.MethodGet, "/api/v1/meetings/abc/segments", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"zero meeting id", http.MethodGet, "/api/v1/meetings/0/suggestions", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown meeting", http.MethodGet, "/api/v1/meetings/999/segments", nil, http.StatusNotFound, "NOT_FOUND"},
		{"unknown meeting alias", http.MethodPost, "/api/v1/meetings/999/aliases", map[string]any{"label": "SPEAKER_00", "new_name": "X"}, http.StatusNotFound, "NOT_FOUND"},
		{"bad refresh flag", http.MethodGet, "/api/v1/meetings/1/suggestions?refresh=maybe", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"malformed json", http.MethodPost, "/api/v1/people", "{", http.StatusBadRequest, "INVALID_INPUT"},
		{"empty body", http.MethodPost, "/api/v1/people", nil, http.StatusBadRequest, "MISSING_FIELD"},
		{"blank name", http.MethodPost, "/api/v1/people", map[string]any{"name": "  "}, http.StatusBadRequest, "INVALID_INPUT"},
		{"body too large", http.MethodPost, "/api/v1/people", big, http.StatusRequestEntityTooLarge, "INVALID_INPUT"},
		{"bad person id", http.MethodPut, "/api/v1/people/not-a-uuid/fingerprint", map[string]any{}, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown person", http.MethodPut, "/api/v1/people/7d9f5c8e-3b1a-4c2d-9e8f-0a1b2c3d4e5f/fingerprint", map[string]any{"embedding": []float32{1, 0, 0, 0}}, http.StatusNotFound, "NOT_FOUND"},
		{"wrong dimension", http.MethodPost, "/api/v1/fingerprints/match", map[string]any{"embedding": []float32{1, 0}}, http.StatusBadRequest, "INVALID_INPUT"},
		{"both person and name", http.MethodPost, "/api/v1/segments/assign-person", map[string]any{"segment_ids": []int64{1}, "person_id": "7d9f5c8e-3b1a-4c2d-9e8f-0a1b2c3d4e5f", "new_name": "X"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"no segments", http.MethodPost, "/api/v1/segments/relabel", map[string]any{"segment_ids": []int64{}, "label": "SPEAKER_01"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"split missing segment", http.MethodPost, "/api/v1/segments/42/split", map[string]any{"text1": "a", "text2": "b"}, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := a.do(tt.method, tt.path, tt.body)
			if code != tt.wantStatus {
				t.Fatalf("expected %d, got %d (%+v)", tt.wantStatus, code, env.Error)
			}
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("expected error code %s, got %+v", tt.wantCode, env.Error)
			}
		})
	}
}
