package registration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "campreg/internal/domain/registration"
)

// DefaultRemoteTimeout bounds a collection fetch when none is configured.
const DefaultRemoteTimeout = 10 * time.Second

// maxRemoteBody caps the size of a decoded collection response.
const maxRemoteBody = 32 << 20

// RemoteStore reads the collection from an external REST endpoint.
type RemoteStore struct {
	url    string
	client *http.Client
}

var _ Store = (*RemoteStore)(nil)

// NewRemoteStore creates a read-only store for the collection at url.
// A nil client gets one with DefaultRemoteTimeout.
func NewRemoteStore(url string, client *http.Client) *RemoteStore {
	if client == nil {
		client = &http.Client{Timeout: DefaultRemoteTimeout}
	}
	return &RemoteStore{url: url, client: client}
}

// Append always fails: the remote collection is written by another system.
func (s *RemoteStore) Append(context.Context, domain.Registration) error {
	return ErrReadOnly
}

// ListAll fetches the whole collection.
// PRE: ctx belongs to the request that needs the data
// POST: a non-2xx answer, a transport failure or an undecodable body is a *StoreError
func (s *RemoteStore) ListAll(ctx context.Context) ([]domain.Registration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &StoreError{Op: "fetch", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &StoreError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StoreError{Op: "fetch", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	records := []domain.Registration{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRemoteBody)).Decode(&records); err != nil {
		return nil, &StoreError{Op: "decode", Err: err}
	}
	return records, nil
}

// FindByID scans the fetched collection for id.
func (s *RemoteStore) FindByID(ctx context.Context, id string) (domain.Registration, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return domain.Registration{}, err
	}
	return findIn(records, id)
}
