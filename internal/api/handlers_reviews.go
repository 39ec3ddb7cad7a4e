package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (s *HTTPServer) listSpotReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	spotID, err := pathID(ps, "spotId")
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	reviews, err := s.svc.Reviews.ListSpotReviews(r.Context(), spotID)
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"Reviews": reviews})
}

func (s *HTTPServer) listMyReviews(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := s.reader(w, r)
	if !ok {
		return
	}
	reviews, err := s.svc.Reviews.ListUserReviews(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, "Review")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"Reviews": reviews})
}

func (s *HTTPServer) createReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.writer(w, r)
	if !ok {
		return
	}
	spotID, err := pathID(ps, "spotId")
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	var req reviewRequest
	if err := s.requests.decode(r, &req); err != nil {
		writeError(w, r, err, "Review")
		return
	}
	review, err := s.svc.Reviews.CreateReview(r.Context(), userID, spotID, req.Review, req.Stars)
	if err != nil {
		entity := "Review"
		if isNotFound(err) {
			entity = "Spot"
		}
		writeError(w, r, err, entity)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *HTTPServer) updateReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.writer(w, r)
	if !ok {
		return
	}
	reviewID, err := pathID(ps, "reviewId")
	if err != nil {
		writeError(w, r, err, "Review")
		return
	}
	var req reviewRequest
	if err := s.requests.decode(r, &req); err != nil {
		writeError(w, r, err, "Review")
		return
	}
	review, err := s.svc.Reviews.UpdateReview(r.Context(), userID, reviewID, req.Review, req.Stars)
	if err != nil {
		writeError(w, r, err, "Review")
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *HTTPServer) deleteReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.writer(w, r)
	if !ok {
		return
	}
	reviewID, err := pathID(ps, "reviewId")
	if err != nil {
		writeError(w, r, err, "Review")
		return
	}
	if err := s.svc.Reviews.DeleteReview(r.Context(), userID, reviewID); err != nil {
		writeError(w, r, err, "Review")
		return
	}
	writeMessage(w, http.StatusOK, "Successfully deleted")
}

func (s *HTTPServer) addReviewImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.writer(w, r)
	if !ok {
		return
	}
	reviewID, err := pathID(ps, "reviewId")
	if err != nil {
		writeError(w, r, err, "Review")
		return
	}
	var req reviewImageRequest
	if err := s.requests.decode(r, &req); err != nil {
		writeError(w, r, err, "Review")
		return
	}
	img, err := s.svc.Reviews.AddReviewImage(r.Context(), userID, reviewID, req.URL)
	if err != nil {
		writeError(w, r, err, "Review")
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

func (s *HTTPServer) deleteReviewImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.writer(w, r)
	if !ok {
		return
	}
	imageID, err := pathID(ps, "imageId")
	if err != nil {
		writeError(w, r, err, "Review Image")
		return
	}
	if err := s.svc.Reviews.DeleteReviewImage(r.Context(), userID, imageID); err != nil {
		writeError(w, r, err, "Review Image")
		return
	}
	writeMessage(w, http.StatusOK, "Successfully deleted")
}
