// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package receiver

const (
	// FieldName is the multipart field carrying the file.
	FieldName = "file"

	DefaultAddr               = "0.0.0.0:9999"
	DefaultUploadDir          = "uploads"
	DefaultMaxBodyBytes int64 = 10 * 1024 * 1024 * 1024
	// parts above this size are spooled to temporary files while parsing
	DefaultMaxMultipartMemory int64 = 32 << 20
)

// Response bodies
const (
	msgNoFilePart     = "No file part in the request."
	msgNoSelectedFile = "No selected file."
	msgInvalidName    = "Invalid file name."
	msgSaveFailed     = "Failed to save file."
	msgTooLarge       = "Request body too large."
	msgUploaded       = "File uploaded successfully"
)

// Config is everything the receiver needs; zero fields take the defaults above.
type Config struct {
	Addr               string
	UploadDir          string
	MaxBodyBytes       int64
	MaxMultipartMemory int64
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.UploadDir == "" {
		c.UploadDir = DefaultUploadDir
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxMultipartMemory <= 0 {
		c.MaxMultipartMemory = DefaultMaxMultipartMemory
	}
	return c
}
