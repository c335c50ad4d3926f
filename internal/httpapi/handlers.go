// Package httpapi is the HTTP surface: room code minting, join links and
// QR codes, archived results, health and the websocket endpoint.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/DoyleJ11/doodlewhat-backend/internal/hub"
	"github.com/DoyleJ11/doodlewhat-backend/internal/logging"
	"github.com/DoyleJ11/doodlewhat-backend/internal/results"
	"github.com/DoyleJ11/doodlewhat-backend/pkg/protocol"
)

const (
	codeAttempts = 8
	qrSize       = 320
)

type createRoomResponse struct {
	Code string `json:"code"`
	Link string `json:"link"`
}

type linkResponse struct {
	Link string `json:"link"`
}

type healthResponse struct {
	Rooms int `json:"rooms"`
}

// CreateRoom mints a code that no running room uses. The room itself is
// created by the first join.
func CreateRoom(h *hub.Hub, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())

		var code string
		for i := 0; i < codeAttempts && code == ""; i++ {
			c, err := protocol.GenerateRoomCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			lb, err := h.Get(r.Context(), c)
			if err != nil {
				http.Error(w, "server shutting down", http.StatusServiceUnavailable)
				return
			}
			if lb != nil {
				log.Debugw("collision on code, regenerating", "room", c)
				continue
			}
			code = c
		}
		if code == "" {
			http.Error(w, "no free room code", http.StatusServiceUnavailable)
			return
		}

		link, err := protocol.JoinLink(publicURL, protocol.Link{Room: code})
		if err != nil {
			http.Error(w, "failed to build link", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, createRoomResponse{Code: code, Link: link})
	}
}

// RoomLink builds a join link. name and rounds are optional query params.
func RoomLink(publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := linkFromRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		link, err := protocol.JoinLink(publicURL, l)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, linkResponse{Link: link})
	}
}

// RoomQR renders the join link as a PNG.
func RoomQR(publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := linkFromRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		link, err := protocol.JoinLink(publicURL, l)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func RoomResults(svc *results.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(chi.URLParam(r, "code"))
		if err := protocol.ValidateRoomCode(code); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if svc == nil {
			http.Error(w, "no results", http.StatusNotFound)
			return
		}
		res, err := svc.Latest(r.Context(), code)
		if errors.Is(err, results.ErrNotFound) {
			http.Error(w, "no results", http.StatusNotFound)
			return
		}
		if err != nil {
			logging.FromContext(r.Context()).Errorw("load results", "room", code, "err", err)
			http.Error(w, "failed to load results", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		codes, err := h.List(r.Context())
		if err != nil {
			http.Error(w, "hub stopped", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Rooms: len(codes)})
	}
}

func linkFromRequest(r *http.Request) (protocol.Link, error) {
	q := r.URL.Query()
	l := protocol.Link{Room: strings.ToUpper(chi.URLParam(r, "code"))}
	if name := q.Get("name"); name != "" {
		n, err := protocol.ValidateName(name)
		if err != nil {
			return l, err
		}
		l.Name = n
	}
	if raw := q.Get("rounds"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || protocol.ValidateRounds(n) != nil {
			return l, protocol.ErrInvalidRounds
		}
		l.Rounds = n
	}
	return l, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
