package proposal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/saltastro/saltapi/internal/token"
)

// The storage service accepts RS256 tokens for a pseudo user.
const (
	ServiceUserID        int64 = -1
	ServiceTokenLifetime       = 300 * time.Second
	submitPath                 = "/proposal/submit"
)

// ErrStorageService is returned when the storage service gave no usable answer.
var ErrStorageService = errors.New("the proposal could not be sent to the storage service")

// RejectedError carries the error message returned by the storage service.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// Submission is a proposal file on its way to the storage service.
type Submission struct {
	Filename     string
	Content      io.Reader
	ProposalCode string
	Submitter    string
}

// Submitter hands proposals to the storage service and returns the
// submission id.
type Submitter interface {
	Submit(ctx context.Context, s Submission) (string, error)
}

// TokenIssuer signs the service token sent with each submission.
type TokenIssuer interface {
	Issue(userID int64, roles []string, expiry time.Duration, alg token.Algorithm) (string, error)
}

// StorageClient submits proposals over HTTP.
type StorageClient struct {
	Endpoint string
	Client   *http.Client
	Issuer   TokenIssuer
}

type storageResponse struct {
	SubmissionID json.RawMessage `json:"submission_id"`
	Error        json.RawMessage `json:"error"`
}

// Submit posts the proposal as multipart form. Failures are not retried.
func (c *StorageClient) Submit(ctx context.Context, s Submission) (string, error) {
	if c == nil || c.Issuer == nil {
		return "", fmt.Errorf("proposal: storage client not initialised")
	}
	endpoint := strings.TrimRight(c.Endpoint, "/")
	if endpoint == "" {
		return "", fmt.Errorf("proposal: storage service endpoint required")
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("proposal", s.Filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, s.Content); err != nil {
		return "", fmt.Errorf("proposal: read submission: %w", err)
	}
	if err := writer.WriteField("submitter", s.Submitter); err != nil {
		return "", err
	}
	if s.ProposalCode != "" {
		if err := writer.WriteField("proposal_code", s.ProposalCode); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	raw, err := c.Issuer.Issue(ServiceUserID, nil, ServiceTokenLifetime, token.RS256)
	if err != nil {
		return "", fmt.Errorf("proposal: service token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+submitPath, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+raw)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageService, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageService, err)
	}
	return parseStorageResponse(data)
}

func parseStorageResponse(data []byte) (string, error) {
	var out storageResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", ErrStorageService
	}
	if id, ok := scalar(out.SubmissionID); ok {
		return id, nil
	}
	if msg, ok := scalar(out.Error); ok {
		return "", &RejectedError{Message: msg}
	}
	return "", ErrStorageService
}

// scalar renders a JSON string or number as text. null and absent values
// are not scalars.
func scalar(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return strings.TrimSpace(string(raw)), true
}

var _ Submitter = (*StorageClient)(nil)
