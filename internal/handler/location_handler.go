package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ratmeow/weather-tracker/internal/middleware"
	"github.com/ratmeow/weather-tracker/internal/model"
	"github.com/ratmeow/weather-tracker/internal/usecase"
)

// LocationSearcher は地点検索のユースケース。
type LocationSearcher interface {
	Execute(ctx context.Context, locationName string) ([]model.LocationCandidate, error)
}

// LocationAdder は保存済み地点の追加のユースケース。
type LocationAdder interface {
	Execute(ctx context.Context, sessionID string, input usecase.LocationInput) error
}

// LocationRemover は保存済み地点の削除のユースケース。
type LocationRemover interface {
	Execute(ctx context.Context, sessionID string, input usecase.LocationInput) error
}

// LocationLister は保存済み地点の天気一覧のユースケース。
type LocationLister interface {
	Execute(ctx context.Context, sessionID string) ([]model.LocationWeather, error)
}

// LocationHandler は地点関連のHTTPハンドラー。
type LocationHandler struct {
	search LocationSearcher
	add    LocationAdder
	remove LocationRemover
	list   LocationLister
}

// NewLocationHandler はLocationHandlerを生成する。
func NewLocationHandler(search LocationSearcher, add LocationAdder, remove LocationRemover, list LocationLister) *LocationHandler {
	return &LocationHandler{search: search, add: add, remove: remove, list: list}
}

type locationRequest struct {
	Name      *string          `json:"name"`
	Latitude  *decimal.Decimal `json:"latitude"`
	Longitude *decimal.Decimal `json:"longitude"`
}

func (req locationRequest) toInput() (usecase.LocationInput, error) {
	if req.Name == nil {
		return usecase.LocationInput{}, model.NewInvalidRequestError("name is required")
	}
	if req.Latitude == nil || req.Longitude == nil {
		return usecase.LocationInput{}, model.NewInvalidRequestError("latitude and longitude are required")
	}
	return usecase.LocationInput{
		Name:        *req.Name,
		Coordinates: model.NewCoordinates(*req.Latitude, *req.Longitude),
	}, nil
}

// Search は地名で地点候補を検索する。
// GET /search?location_name=xxx
func (h *LocationHandler) Search(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("location_name"))
	if name == "" {
		middleware.WriteError(w, r, model.NewInvalidRequestError("location_name is required"))
		return
	}

	candidates, err := h.search.Execute(r.Context(), name)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	resp := make([]locationResponse, len(candidates))
	for i, c := range candidates {
		resp[i] = toLocationResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Add は地点をセッションのユーザーの保存済み地点に追加する。
// POST /search
func (h *LocationHandler) Add(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req locationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if err := h.add.Execute(r.Context(), sessionID, input); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// List は保存済み地点ごとの現在の天気を返す。
// GET /locations
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	weather, err := h.list.Execute(r.Context(), sessionID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	resp := make([]weatherResponse, len(weather))
	for i, lw := range weather {
		resp[i] = toWeatherResponse(lw)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Remove は地点をセッションのユーザーの保存済み地点から削除する。
// DELETE /?name=xxx&latitude=yyy&longitude=zzz
func (h *LocationHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDOrUnauthorized(w, r)
	if !ok {
		return
	}

	input, err := locationFromQuery(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if err := h.remove.Execute(r.Context(), sessionID, input); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func locationFromQuery(r *http.Request) (usecase.LocationInput, error) {
	q := r.URL.Query()
	if !q.Has("name") {
		return usecase.LocationInput{}, model.NewInvalidRequestError("name is required")
	}
	coords, err := model.ParseCoordinates(q.Get("latitude"), q.Get("longitude"))
	if err != nil {
		return usecase.LocationInput{}, model.NewInvalidRequestError("latitude and longitude must be decimal numbers")
	}
	return usecase.LocationInput{Name: q.Get("name"), Coordinates: coords}, nil
}

func sessionIDOrUnauthorized(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", false
	}
	return sessionID, true
}
