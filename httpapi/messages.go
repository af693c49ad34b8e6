package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/quickwhats/quickwhats/detect"
	"github.com/quickwhats/quickwhats/imagefetch"
	"github.com/quickwhats/quickwhats/recent"
)

// message is the single envelope producers and the panel post. Which fields
// matter depends on the action; two legacy shapes without an action survive
// for old clients: a bare countryCode update and a bare phoneNumber event.
type message struct {
	Action        string   `json:"action"`
	PhoneNumber   string   `json:"phoneNumber"`
	PhoneNumbers  []string `json:"phoneNumbers"`
	Text          string   `json:"text"`
	CountryCode   string   `json:"countryCode"`
	Source        string   `json:"source"`
	Message       string   `json:"message"`
	ImageURL      string   `json:"imageUrl"`
	PageURL       string   `json:"pageUrl"`
	SelectionText string   `json:"selectionText"`
}

const extractTimeout = 2 * time.Minute

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var m message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	switch m.Action {
	case "popupOpened":
		if err := s.cfg.Coordinator.ConsumerOpened(ctx); err != nil {
			jsonErr(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	case "getLastPhoneNumbers":
		res, err := s.cfg.Coordinator.Query(ctx)
		if err != nil {
			jsonErr(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, res)

	case "textSelection":
		numbers := m.PhoneNumbers
		if len(numbers) == 0 && m.Text != "" && s.cfg.Scan != nil {
			numbers = s.cfg.Scan(m.Text)
		}
		if err := s.cfg.Coordinator.ProducerEvent(ctx, numbers, m.Source, true); err != nil {
			jsonErr(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(numbers)})

	case "sendWhatsApp":
		if m.PhoneNumber == "" {
			jsonErr(w, "phoneNumber is required", http.StatusBadRequest)
			return
		}
		entries, err := s.cfg.Coordinator.ConfirmSend(ctx, detect.SendRequest{
			Number:      m.PhoneNumber,
			CountryCode: m.CountryCode,
			Source:      m.Source,
			Text:        m.Message,
		})
		s.replyRecent(w, entries, err)

	case "updateRecentNumberTimestamp":
		if m.PhoneNumber == "" {
			jsonErr(w, "phoneNumber is required", http.StatusBadRequest)
			return
		}
		entries, err := s.cfg.Coordinator.ReuseFromHistory(ctx, m.PhoneNumber, m.CountryCode)
		s.replyRecent(w, entries, err)

	case "deleteRecentNumber":
		if m.PhoneNumber == "" {
			jsonErr(w, "phoneNumber is required", http.StatusBadRequest)
			return
		}
		entries, err := s.cfg.Coordinator.DeleteEntry(ctx, m.PhoneNumber)
		s.replyRecent(w, entries, err)

	case "clearAllRecentNumbers":
		entries, err := s.cfg.Coordinator.ClearHistory(ctx)
		s.replyRecent(w, entries, err)

	case "sendFromContextMenu":
		if m.SelectionText == "" {
			jsonErr(w, "selectionText is required", http.StatusBadRequest)
			return
		}
		if err := s.cfg.Coordinator.SendFromContextMenu(ctx, m.SelectionText, m.Source); err != nil {
			jsonErr(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	case "extractImage":
		if m.ImageURL == "" {
			jsonErr(w, "imageUrl is required", http.StatusBadRequest)
			return
		}
		s.startExtraction(m)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "processing"})

	case "":
		// Legacy shapes: a message carrying only a country code, or only a
		// single detected number.
		switch {
		case m.CountryCode != "":
			if err := s.cfg.Coordinator.SetCountryCode(ctx, m.CountryCode); err != nil {
				jsonErr(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		case m.PhoneNumber != "":
			// Context-menu sends are user-initiated, so they surface a page
			// toast like any interactive detection.
			interactive := m.Source == detect.SourceContextMenu
			if err := s.cfg.Coordinator.ProducerEvent(ctx, []string{m.PhoneNumber}, m.Source, interactive); err != nil {
				jsonErr(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		default:
			jsonErr(w, "missing action", http.StatusBadRequest)
		}

	default:
		jsonErr(w, "unknown action: "+m.Action, http.StatusBadRequest)
	}
}

// startExtraction runs the pipeline in the background; the producer only
// needs the acknowledgement, progress and results flow through the event
// stream and the detection state.
func (s *Server) startExtraction(m message) {
	var delegate imagefetch.Delegate
	if s.cfg.Delegate != nil {
		delegate = s.cfg.Delegate(m.PageURL)
	}
	source := m.Source
	if source == "" {
		source = detect.SourceImage
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
		defer cancel()
		s.cfg.Pipeline.ExtractFromImage(ctx, m.ImageURL, source, delegate)
	}()
}

func (s *Server) replyRecent(w http.ResponseWriter, entries []recent.Entry, err error) {
	if err != nil {
		jsonErr(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]recent.Entry{"recentNumbers": entries})
}
