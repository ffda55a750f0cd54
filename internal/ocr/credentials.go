package ocr

import (
	"os"

	"google.golang.org/api/option"
)

// GoogleClientOptions returns credential options from the environment. Inline
// GOOGLE_CREDENTIALS wins over a GOOGLE_APPLICATION_CREDENTIALS file. The second
// return value is false when neither is set and application default credentials apply.
func GoogleClientOptions() ([]option.ClientOption, bool) {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}, true
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}, true
	}
	return nil, false
}
