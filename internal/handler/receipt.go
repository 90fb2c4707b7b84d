package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pantryscan/internal/dto"
	"pantryscan/internal/logger"
	"pantryscan/internal/service/receipt"
)

// maxReceiptUpload bounds the multipart body of one receipt scan.
const maxReceiptUpload = 32 << 20

// ReceiptScanner recognizes receipt pages and matches text against the
// ingredient dictionary.
type ReceiptScanner interface {
	Scan(ctx context.Context, pages [][]byte) (receipt.Result, error)
	MatchStrings(strs []string) []string
}

// ScanReceiptHandler handles POST /api/receipt with one or more page images
// in the multipart field "pages".
func ScanReceiptHandler(scanner ReceiptScanner, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxReceiptUpload)
		if err := r.ParseMultipartForm(maxReceiptUpload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart upload")
			return
		}

		files := r.MultipartForm.File["pages"]
		if len(files) == 0 {
			writeError(w, http.StatusBadRequest, "no pages uploaded")
			return
		}

		pages := make([][]byte, 0, len(files))
		for _, header := range files {
			file, err := header.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable page "+header.Filename)
				return
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable page "+header.Filename)
				return
			}
			pages = append(pages, data)
		}

		result, err := scanner.Scan(r.Context(), pages)
		if err != nil {
			logger.Error("Receipt scan failed: %v", err)
			if errors.Is(err, receipt.ErrRecognition) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// MatchReceiptHandler handles POST /api/receipt/match for text that was
// recognized elsewhere.
func MatchReceiptHandler(scanner ReceiptScanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req dto.ReceiptMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		writeJSON(w, http.StatusOK, dto.ReceiptMatchResponse{Ingredients: scanner.MatchStrings(req.Strings)})
	}
}
