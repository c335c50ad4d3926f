package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/doodlewhat-backend/internal/hub"
	"github.com/DoyleJ11/doodlewhat-backend/internal/lobby"
	"github.com/DoyleJ11/doodlewhat-backend/internal/results"
	"github.com/DoyleJ11/doodlewhat-backend/pkg/protocol"
)

type fixedWord string

func (w fixedWord) Pick() string { return string(w) }

const publicURL = "https://doodle.example"

func newRouter(t *testing.T) (http.Handler, *hub.Hub, *results.Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, lobby.Options{Words: fixedWord("cat")})
	svc, err := results.NewService(results.NewMemoryStore(), 16)
	require.NoError(t, err)

	return SetupRoutes(Deps{Hub: h, Results: svc, PublicURL: publicURL}), h, svc
}

func do(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateRoom(t *testing.T) {
	router, _, _ := newRouter(t)

	rec := do(t, router, http.MethodPost, "/rooms")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body createRoomResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NoError(t, protocol.ValidateRoomCode(body.Code))
	assert.Equal(t, publicURL+"/whiteboard?room="+body.Code, body.Link)
}

func TestRoomLink(t *testing.T) {
	router, _, _ := newRouter(t)

	cases := []struct {
		name     string
		target   string
		wantCode int
		wantLink string
	}{
		{name: "room only", target: "/rooms/AB12CD/link", wantCode: http.StatusOK, wantLink: publicURL + "/whiteboard?room=AB12CD"},
		{name: "lowercase code", target: "/rooms/ab12cd/link", wantCode: http.StatusOK, wantLink: publicURL + "/whiteboard?room=AB12CD"},
		{name: "with name and rounds", target: "/rooms/AB12CD/link?name=Alice&rounds=3", wantCode: http.StatusOK, wantLink: publicURL + "/whiteboard?name=Alice&room=AB12CD&rounds=3"},
		{name: "bad code", target: "/rooms/AB1/link", wantCode: http.StatusBadRequest},
		{name: "bad rounds", target: "/rooms/AB12CD/link?rounds=0", wantCode: http.StatusBadRequest},
		{name: "long name", target: "/rooms/AB12CD/link?name=ThisNameIsFarTooLong", wantCode: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, tc.target)
			require.Equal(t, tc.wantCode, rec.Code)
			if tc.wantLink == "" {
				return
			}
			var body linkResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.wantLink, body.Link)

			l, err := protocol.ParseJoinLink(body.Link + "&name=Bob")
			require.NoError(t, err)
			assert.Equal(t, "AB12CD", l.Room)
		})
	}
}

func TestRoomQR(t *testing.T) {
	router, _, _ := newRouter(t)

	rec := do(t, router, http.MethodGet, "/rooms/AB12CD/qr")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())

	rec = do(t, router, http.MethodGet, "/rooms/nope/qr")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoomResults(t *testing.T) {
	router, _, svc := newRouter(t)

	rec := do(t, router, http.MethodGet, "/rooms/AB12CD/results")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	want := results.GameResult{
		RoomCode:   "AB12CD",
		Rounds:     2,
		Winners:    []string{"Alice"},
		TopScore:   120,
		Scores:     map[string]int{"Alice": 120, "Bob": 80},
		FinishedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, svc.Record(context.Background(), want))

	rec = do(t, router, http.MethodGet, "/rooms/AB12CD/results")
	require.Equal(t, http.StatusOK, rec.Code)
	var got results.GameResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, want, got)
}

func TestHealthz(t *testing.T) {
	router, h, _ := newRouter(t)

	_, err := h.Ensure(context.Background(), "AB12CD")
	require.NoError(t, err)

	rec := do(t, router, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1, body.Rooms)
}
