package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// SpreadsheetIDFromEnv reads GOOGLE_SHEETS_ID, falling back to GOOGLE_SPREADSHEET_ID.
func SpreadsheetIDFromEnv() string {
	if id := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_ID")); id != "" {
		return id
	}
	return strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
}

// CredentialsFromEnv returns service account JSON from, in order:
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// GOOGLE_APPLICATION_CREDENTIALS, or the discrete GOOGLE_CLIENT_EMAIL and
// GOOGLE_PRIVATE_KEY variables.
func CredentialsFromEnv() ([]byte, error) {
	return credentialsFrom(os.Getenv, os.ReadFile)
}

func credentialsFrom(getenv func(string) string, readFile func(string) ([]byte, error)) ([]byte, error) {
	get := func(k string) string { return strings.TrimSpace(getenv(k)) }

	if js := get("GOOGLE_SERVICE_ACCOUNT_JSON"); js != "" {
		return []byte(js), nil
	}
	path := get("GOOGLE_SERVICE_ACCOUNT_FILE")
	if path == "" {
		path = get("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if path != "" {
		data, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	}

	email := get("GOOGLE_CLIENT_EMAIL")
	key := get("GOOGLE_PRIVATE_KEY")
	if email == "" || key == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY)")
	}
	projectID := get("GOOGLE_PROJECT_ID")
	if projectID == "" {
		projectID = "expense-bot"
	}
	sa := map[string]string{
		"type":                        "service_account",
		"project_id":                  projectID,
		"private_key_id":              get("GOOGLE_PRIVATE_KEY_ID"),
		"private_key":                 strings.ReplaceAll(key, `\n`, "\n"),
		"client_email":                email,
		"client_id":                   get("GOOGLE_CLIENT_ID"),
		"auth_uri":                    "https://accounts.google.com/o/oauth2/auth",
		"token_uri":                   "https://oauth2.googleapis.com/token",
		"auth_provider_x509_cert_url": "https://www.googleapis.com/oauth2/v1/certs",
	}
	data, err := json.Marshal(sa)
	if err != nil {
		return nil, fmt.Errorf("encode service account: %w", err)
	}
	return data, nil
}
