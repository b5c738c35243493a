package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"digitocr/internal/engine"
	"digitocr/internal/model"
)

const maxBodyBytes = 8 << 20

// Backend is what the handlers need from the engine.
type Backend interface {
	model.Classifier
	Status() engine.Status
}

// Server exposes a Backend over HTTP.
type Server struct {
	backend Backend
	mux     *http.ServeMux
}

// New wires the routes. staticDir may be empty.
func New(backend Backend, staticDir string) *Server {
	s := &Server{backend: backend, mux: http.NewServeMux()}
	s.mux.HandleFunc("/ocr", s.handleOCR)
	s.mux.HandleFunc("/status", s.handleStatus)
	if staticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type ocrRequest struct {
	Train      bool          `json:"train"`
	TrainArray []trainSample `json:"trainArray"`
	Predict    bool          `json:"predict"`
	Image      model.Grid    `json:"image"`
}

// trainSample keeps label optional so a missing label is told apart
// from label 0.
type trainSample struct {
	Y0    model.Grid `json:"y0"`
	Label *int       `json:"label"`
}

type trainResponse struct {
	Status         string `json:"status"`
	SamplesTrained int    `json:"samples_trained"`
}

type predictResponse struct {
	Status string `json:"status"`
	model.Prediction
}

type statusResponse struct {
	State string `json:"status"`
	engine.Status
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := uuid.NewString()

	var req ocrRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		log.Printf("request=%s decode failed: %v", id, err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch {
	case req.Train:
		s.train(w, id, req.TrainArray)
	case req.Predict:
		s.predict(w, id, req.Image)
	default:
		log.Printf("request=%s unknown request type", id)
		writeError(w, http.StatusBadRequest, "Unknown request type")
	}
}

func (s *Server) train(w http.ResponseWriter, id string, raw []trainSample) {
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "No training data provided")
		return
	}
	samples := make([]model.Sample, 0, len(raw))
	for i, item := range raw {
		if item.Y0 == nil || item.Label == nil {
			log.Printf("request=%s sample=%d missing y0 or label, skipped", id, i)
			continue
		}
		samples = append(samples, model.Sample{Y0: item.Y0, Label: *item.Label})
	}
	if len(samples) == 0 {
		writeError(w, http.StatusBadRequest, "No valid training samples")
		return
	}

	if err := s.backend.Train(samples); err != nil {
		log.Printf("request=%s train failed samples=%d: %v", id, len(samples), err)
		if engine.IsInputError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Training failed")
		return
	}
	log.Printf("request=%s trained samples=%d", id, len(samples))
	writeJSON(w, http.StatusOK, trainResponse{Status: "training done", SamplesTrained: len(samples)})
}

func (s *Server) predict(w http.ResponseWriter, id string, image model.Grid) {
	if image == nil {
		writeError(w, http.StatusBadRequest, "No image data provided")
		return
	}
	pred, err := s.backend.Predict(image)
	if err != nil {
		log.Printf("request=%s predict failed: %v", id, err)
		if errors.Is(err, model.ErrGridSize) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Prediction failed")
		return
	}
	log.Printf("request=%s digit=%d confidence=%.4f", id, pred.Digit, pred.Confidence)
	writeJSON(w, http.StatusOK, predictResponse{Status: "prediction done", Prediction: pred})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{State: "running", Status: s.backend.Status()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
