// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package receiver

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// Upload stores the "file" part as <upload_dir>/<filename>, replacing any
// file with the same name.
func (s *ReceiverService) Upload(c *gin.Context) {
	fh, err := c.FormFile(FieldName)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			c.String(http.StatusRequestEntityTooLarge, msgTooLarge)
		case errors.Is(err, http.ErrMissingFile) && hasValue(c, FieldName):
			// a part without filename is parsed as a plain form value
			c.String(http.StatusBadRequest, msgNoSelectedFile)
		default:
			s.log.Debug("no file part", "error", err)
			c.String(http.StatusBadRequest, msgNoFilePart)
		}
		return
	}

	if fh.Filename == "" {
		c.String(http.StatusBadRequest, msgNoSelectedFile)
		return
	}
	name, ok := safeName(fh.Filename)
	if !ok {
		c.String(http.StatusBadRequest, msgInvalidName)
		return
	}

	dst := filepath.Join(s.conf.UploadDir, name)
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		s.log.Error("Failed to save file", "path", dst, "error", err)
		c.String(http.StatusInternalServerError, msgSaveFailed)
		return
	}

	s.log.Info("File saved", "path", dst, "size", fh.Size)
	c.String(http.StatusOK, msgUploaded)
}

func hasValue(c *gin.Context, field string) bool {
	form := c.Request.MultipartForm
	if form == nil {
		return false
	}
	_, ok := form.Value[field]
	return ok
}

// safeName keeps only the last path element and refuses names that would
// not land inside the upload directory.
func safeName(filename string) (string, bool) {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == ".." || name == "/" || name == "" {
		return "", false
	}
	return name, true
}
