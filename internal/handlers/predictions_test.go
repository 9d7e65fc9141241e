package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/riftstats/props-api/internal/models"
)

type mockPredictionService struct {
	predictFunc func(ctx context.Context, q *models.PredictionRequest) (*models.PredictionResult, error)
	curveFunc   func(ctx context.Context, q *models.PredictionRequest, step, span float64) ([]models.CurvePoint, error)
}

func (m *mockPredictionService) Predict(ctx context.Context, q *models.PredictionRequest) (*models.PredictionResult, error) {
	return m.predictFunc(ctx, q)
}

func (m *mockPredictionService) Curve(ctx context.Context, q *models.PredictionRequest, step, span float64) ([]models.CurvePoint, error) {
	return m.curveFunc(ctx, q, step, span)
}

type mockQueue struct {
	enqueueFunc func(outcome *models.PropOutcome) bool
	depth       int
}

func (m *mockQueue) Enqueue(outcome *models.PropOutcome) bool { return m.enqueueFunc(outcome) }
func (m *mockQueue) QueueDepth() int                          { return m.depth }

func newTestHandler(svc *mockPredictionService, queue *mockQueue) *Handler {
	if queue == nil {
		queue = &mockQueue{enqueueFunc: func(*models.PropOutcome) bool { return true }}
	}
	return New(Config{
		OutcomePool: queue,
		Logger:      zap.NewNop(),
		Prediction:  svc,
	})
}

const validRequestBody = `{
	"player_names": ["Faker"],
	"prop_type": "kills",
	"prop_value": 4.5,
	"map_range": [1, 1],
	"opponent": "GEN",
	"tournament": "LCK Summer 2025",
	"match_date": "2025-07-01T00:00:00Z"
}`

func TestPostPrediction(t *testing.T) {
	canned := &models.PredictionResult{
		PredictionID: "abc-123",
		Prediction:   models.PredictionOver,
		Confidence:   71.5,
		ExpectedStat: 4.92,
	}

	tests := []struct {
		name       string
		body       string
		predict    func(ctx context.Context, q *models.PredictionRequest) (*models.PredictionResult, error)
		wantStatus int
	}{
		{
			name: "Valid query returns the prediction",
			body: validRequestBody,
			predict: func(ctx context.Context, q *models.PredictionRequest) (*models.PredictionResult, error) {
				if q.Player() != "Faker" {
					t.Errorf("Player = %q, want Faker", q.Player())
				}
				return canned, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "Invalid JSON is rejected",
			body:       `{"player_names": [`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Missing opponent is rejected",
			body:       `{"player_names":["Faker"],"prop_type":"kills","prop_value":4.5,"map_range":[1,1],"tournament":"LCK Summer 2025","match_date":"2025-07-01T00:00:00Z"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Two players are rejected",
			body:       `{"player_names":["Faker","Chovy"],"prop_type":"kills","prop_value":4.5,"map_range":[1,1],"opponent":"GEN","tournament":"LCK Summer 2025","match_date":"2025-07-01T00:00:00Z"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Inverted map range is rejected",
			body:       `{"player_names":["Faker"],"prop_type":"kills","prop_value":4.5,"map_range":[3,1],"opponent":"GEN","tournament":"LCK Summer 2025","match_date":"2025-07-01T00:00:00Z"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Unknown prop type is rejected",
			body:       `{"player_names":["Faker"],"prop_type":"pentakills","prop_value":4.5,"map_range":[1,1],"opponent":"GEN","tournament":"LCK Summer 2025","match_date":"2025-07-01T00:00:00Z"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPredictionService{predictFunc: tt.predict}
			if svc.predictFunc == nil {
				svc.predictFunc = func(ctx context.Context, q *models.PredictionRequest) (*models.PredictionResult, error) {
					t.Error("Predict must not be called for a rejected request")
					return nil, nil
				}
			}
			h := newTestHandler(svc, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.PostPrediction(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				var got models.PredictionResult
				if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
					t.Fatalf("response is not valid JSON: %v", err)
				}
				if got.PredictionID != canned.PredictionID || got.Prediction != canned.Prediction {
					t.Errorf("response = %+v, want %+v", got, canned)
				}
			}
		})
	}
}

func TestPostPredictionCurveParsesSweepParams(t *testing.T) {
	var gotStep, gotSpan float64
	svc := &mockPredictionService{
		curveFunc: func(ctx context.Context, q *models.PredictionRequest, step, span float64) ([]models.CurvePoint, error) {
			gotStep, gotSpan = step, span
			return []models.CurvePoint{{PropValue: 4.5, Confidence: 60, Prediction: models.PredictionOver}}, nil
		},
	}
	h := newTestHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions/curve?step=0.25&span=2", strings.NewReader(validRequestBody))
	w := httptest.NewRecorder()
	h.PostPredictionCurve(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if gotStep != 0.25 || gotSpan != 2 {
		t.Errorf("sweep params = (%v, %v), want (0.25, 2)", gotStep, gotSpan)
	}

	var points []models.CurvePoint
	if err := json.Unmarshal(w.Body.Bytes(), &points); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if len(points) != 1 {
		t.Errorf("got %d points, want 1", len(points))
	}
}

func TestPostPredictionCurveDefaults(t *testing.T) {
	var gotStep, gotSpan float64
	svc := &mockPredictionService{
		curveFunc: func(ctx context.Context, q *models.PredictionRequest, step, span float64) ([]models.CurvePoint, error) {
			gotStep, gotSpan = step, span
			return nil, nil
		},
	}
	h := newTestHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/predictions/curve?step=bogus", strings.NewReader(validRequestBody))
	w := httptest.NewRecorder()
	h.PostPredictionCurve(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if gotStep != 0.5 || gotSpan != 3.0 {
		t.Errorf("sweep defaults = (%v, %v), want (0.5, 3)", gotStep, gotSpan)
	}
}

func TestPostOutcome(t *testing.T) {
	validOutcome := `{
		"player_name": "Faker",
		"prop_type": "kills",
		"prop_value": 4.5,
		"actual_value": 6,
		"over": true,
		"raw_prob": 0.64,
		"match_date": "2025-07-01T00:00:00Z"
	}`

	tests := []struct {
		name       string
		body       string
		enqueue    func(outcome *models.PropOutcome) bool
		wantStatus int
	}{
		{
			name: "Outcome is queued",
			body: validOutcome,
			enqueue: func(outcome *models.PropOutcome) bool {
				if outcome.PlayerName != "Faker" || !outcome.Over {
					t.Errorf("enqueued outcome = %+v", outcome)
				}
				return true
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "Saturated queue returns 503",
			body:       validOutcome,
			enqueue:    func(*models.PropOutcome) bool { return false },
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "Missing player name is rejected",
			body:       `{"prop_type":"kills","prop_value":4.5,"match_date":"2025-07-01T00:00:00Z"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Out-of-range probability is rejected",
			body:       `{"player_name":"Faker","prop_type":"kills","prop_value":4.5,"raw_prob":1.2,"match_date":"2025-07-01T00:00:00Z"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &mockQueue{enqueueFunc: tt.enqueue}
			if queue.enqueueFunc == nil {
				queue.enqueueFunc = func(*models.PropOutcome) bool {
					t.Error("Enqueue must not be called for a rejected outcome")
					return true
				}
			}
			h := newTestHandler(&mockPredictionService{}, queue)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/outcomes", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.PostOutcome(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusAccepted {
				var resp map[string]string
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatal(err)
				}
				if resp["status"] != "queued" {
					t.Errorf("status field = %q, want queued", resp["status"])
				}
			}
		})
	}
}
