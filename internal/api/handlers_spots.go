package api

import (
	"net/http"
	"strconv"
	"strings"

	"staybook/internal/domain"
	"staybook/internal/models"

	"github.com/julienschmidt/httprouter"
)

var filterParams = []string{"minLat", "maxLat", "minLng", "maxLng", "minPrice", "maxPrice"}

// parseSpotFilter reads the optional numeric bounds from the query string.
func parseSpotFilter(r *http.Request) (models.SpotFilter, error) {
	var (
		filter models.SpotFilter
		v      domain.Validator
	)
	targets := map[string]**float64{
		"minLat":   &filter.MinLat,
		"maxLat":   &filter.MaxLat,
		"minLng":   &filter.MinLng,
		"maxLng":   &filter.MaxLng,
		"minPrice": &filter.MinPrice,
		"maxPrice": &filter.MaxPrice,
	}
	q := r.URL.Query()
	for _, name := range filterParams {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		v.Check(err == nil, name, name+" must be a number")
		if err == nil {
			*targets[name] = &f
		}
	}
	return filter, v.Err()
}

func (s *HTTPServer) searchSpots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter, err := parseSpotFilter(r)
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	spots, err := s.svc.Spots.SearchSpots(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"Spots": spots})
}

func (s *HTTPServer) listMySpots(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.reader(w, r)
	if !ok {
		return
	}
	spots, err := s.svc.Spots.ListOwnerSpots(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"Spots": spots})
}

func (s *HTTPServer) getSpot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("spotId") == "current" {
		s.listMySpots(w, r)
		return
	}
	spotID, err := pathID(ps, "spotId")
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	spot, err := s.svc.Spots.GetSpot(r.Context(), spotID)
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	writeJSON(w, http.StatusOK, spot)
}

func (s *HTTPServer) createSpot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := s.writer(w, r)
	if !ok {
		return
	}
	var req spotRequest
	if err := s.requests.decode(r, &req); err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	spot := req.spot()
	if err := s.svc.Spots.CreateSpot(r.Context(), userID, spot); err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	writeJSON(w, http.StatusCreated, spot)
}

func (s *HTTPServer) updateSpot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.writer(w, r)
	if !ok {
		return
	}
	spotID, err := pathID(ps, "spotId")
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	var req spotRequest
	if err := s.requests.decode(r, &req); err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	spot, err := s.svc.Spots.UpdateSpot(r.Context(), userID, spotID, req.spot())
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	writeJSON(w, http.StatusOK, spot)
}

func (s *HTTPServer) deleteSpot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.writer(w, r)
	if !ok {
		return
	}
	spotID, err := pathID(ps, "spotId")
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	if err := s.svc.Spots.DeleteSpot(r.Context(), userID, spotID); err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	writeMessage(w, http.StatusOK, "Successfully deleted")
}

func (s *HTTPServer) addSpotImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.writer(w, r)
	if !ok {
		return
	}
	spotID, err := pathID(ps, "spotId")
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	var req spotImageRequest
	if err := s.requests.decode(r, &req); err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	img, err := s.svc.Spots.AddSpotImage(r.Context(), userID, spotID, req.URL, req.Preview)
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

func (s *HTTPServer) deleteSpotImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.writer(w, r)
	if !ok {
		return
	}
	imageID, err := pathID(ps, "imageId")
	if err != nil {
		writeError(w, r, err, "Spot Image")
		return
	}
	if err := s.svc.Spots.DeleteSpotImage(r.Context(), userID, imageID); err != nil {
		writeError(w, r, err, "Spot Image")
		return
	}
	writeMessage(w, http.StatusOK, "Successfully deleted")
}
