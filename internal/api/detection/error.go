package detection

import (
	"FaceGate/pkg/response"
	"net/http"
)

var (
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
	ErrBadRequest          = response.NewError(http.StatusBadRequest, "bad request")
	ErrSessionNotFound     = response.NewError(http.StatusNotFound, "face detection session not found")
	ErrInvalidFrame        = response.NewError(http.StatusBadRequest, "frame must be base64 encoded image data")
)
