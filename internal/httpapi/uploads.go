package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/upload"
)

type uploadResponse struct {
	URL string `json:"url"`
}

// handleUpload accepts a multipart "file" field for one of the allowed kinds.
func (s *Server) handleUpload(allowed ...upload.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := upload.ParseKind(r.PathValue("kind"))
		if !ok || !slices.Contains(allowed, kind) {
			s.fail(w, r, fmt.Errorf("upload kind %q: %w", r.PathValue("kind"), domain.ErrNotFound))
			return
		}
		f, closeFile, err := s.formFile(w, r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		defer closeFile()

		url, err := s.portfolio.Upload(r.Context(), kind, f)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
	}
}

func (s *Server) handleProfilePhoto(w http.ResponseWriter, r *http.Request) {
	f, closeFile, err := s.formFile(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer closeFile()

	site, err := s.portfolio.UpdateProfilePhoto(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (upload.File, func(), error) {
	if s.portfolio.Uploader() == nil {
		return upload.File{}, nil, domain.ErrUploadsDisabled
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return upload.File{}, nil, &domain.ValidationError{Field: "file", Reason: "is too large"}
		}
		return upload.File{}, nil, &domain.ValidationError{Field: "file", Reason: "is required"}
	}
	return upload.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}, func() { _ = file.Close() }, nil
}
