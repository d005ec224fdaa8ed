package httpserver

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/bryanwahyu/bioscan/internal/domain/exams"
	"github.com/bryanwahyu/bioscan/internal/middleware"
)

type analyzeRequest struct {
	Filename string `json:"filename"`
	Document string `json:"document"`
}

// POST /api/v1/analyze
// Credential: X-Goog-Api-Key or Authorization: Bearer.
// Body: multipart file=<pdf>, or JSON {"filename","document"} where
// document is base64 or a data URL.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	ctx := req.Context()
	credential := middleware.GetCredentialFromContext(ctx)
	if credential == "" {
		return exams.ErrMissingCredential
	}

	// base64 inflates by 4/3; leave room for that plus the envelope
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload*4/3+(1<<20))

	var (
		res *exams.AnalysisResponse
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		file, hdr, ferr := req.FormFile("file")
		if ferr != nil {
			return fmt.Errorf("%w: %v", exams.ErrFileRead, ferr)
		}
		defer file.Close()
		res, err = r.examsSvc.Analyze(ctx, middleware.SanitizeFilename(hdr.Filename), file, credential)

	default:
		var body analyzeRequest
		if derr := json.NewDecoder(req.Body).Decode(&body); derr != nil {
			return fmt.Errorf("%w: invalid request body: %v", exams.ErrFileRead, derr)
		}
		p, perr := r.examsSvc.EncodeDocument(middleware.SanitizeFilename(body.Filename), body.Document)
		if perr != nil {
			return perr
		}
		res, err = r.examsSvc.AnalyzePayload(ctx, p, credential)
	}
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, res)
	return nil
}
