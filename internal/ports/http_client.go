package ports

import "net/http"

// HTTPClient sends the REST and storage requests of the hosted backend.
// *http.Client satisfies it; tests substitute a round-trip stub.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
