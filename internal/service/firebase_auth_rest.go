package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const identityToolkitBaseURL = "https://identitytoolkit.googleapis.com/v1"

// FirebaseAuthRestClient signs users in through the Identity Toolkit REST API.
// The Admin SDK can verify tokens but cannot exchange a password for one.
type FirebaseAuthRestClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewFirebaseAuthRestClient(apiKey string) *FirebaseAuthRestClient {
	return &FirebaseAuthRestClient{
		apiKey:  apiKey,
		baseURL: identityToolkitBaseURL,
		httpClient: &http.Client{
			Timeout: time.Second * 100,
		},
	}
}

// WithBaseURL points the client at another Identity Toolkit endpoint, such as
// the Firebase emulator.
func (f *FirebaseAuthRestClient) WithBaseURL(baseURL string) *FirebaseAuthRestClient {
	f.baseURL = baseURL
	return f
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("Google Identity Toolkit returned error: %v %v", e.Message, e.Code)
}

type IdTokenResponse struct {
	IdToken      string         `json:"idToken"`
	Email        string         `json:"email"`
	RefreshToken string         `json:"refreshToken"`
	ExpiresIn    string         `json:"expiresIn"`
	LocalId      string         `json:"localId"`
	Registered   bool           `json:"registered"`
	Error        *ErrorResponse `json:"error"`
}

func (f *FirebaseAuthRestClient) SignInWithEmailAndPassword(ctx context.Context, email string, password string) (IdTokenResponse, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	response := IdTokenResponse{}
	if err := f.post(ctx, "accounts:signInWithPassword", body, &response); err != nil {
		return IdTokenResponse{}, err
	}
	return response, nil
}

func (f *FirebaseAuthRestClient) post(ctx context.Context, method string, body any, out any) error {
	bodyJson, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s?key=%s", f.baseURL, method, f.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyJson))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()
	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}
	// error responses still carry a JSON body with the "error" object
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("error decoding response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
