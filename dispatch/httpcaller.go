package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"
)

// DefaultHTTPTries bounds per-request retries in the pester client.
const DefaultHTTPTries = 3

func makePesterClient() *pester.Client {
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = DefaultHTTPTries
	client.LogHook = func(e pester.ErrEntry) {
		log.Errorf("Retrying after failed attempt: %+v", e)
	}
	return client
}

// HTTPCaller is the remote backing proxy: calls are marshalled onto the
// synchronous HTTP JSON channel served by dispatch/server on another host.
type HTTPCaller struct {
	url    string
	client *pester.Client
}

func NewHTTPCaller(url string) *HTTPCaller {
	return &HTTPCaller{url: url, client: makePesterClient()}
}

// WaitReady polls the server's readiness endpoint with exponential backoff
// until it answers or the timeout elapses.
func (c *HTTPCaller) WaitReady(timeout time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = timeout
	return backoff.Retry(func() error {
		resp, err := c.client.Get(c.url)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return errors.Errorf("dispatch server not ready: %s", resp.Status)
		}
		return nil
	}, b)
}

func (c *HTTPCaller) Call(name string, args ...interface{}) (interface{}, error) {
	// Apply the gate before paying for a round trip; the server applies it
	// again on its side.
	if _, _, err := SplitName(name); err != nil {
		return nil, err
	}
	if args == nil {
		args = []interface{}{}
	}
	body, err := json.Marshal(CallRequest{Method: name, Params: args})
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s call", name)
	}
	resp, err := c.client.Post(c.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "calling %s on %s", name, c.url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("calling %s on %s: %s", name, c.url, resp.Status)
	}
	var cr CallResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, errors.Wrapf(err, "decoding %s response", name)
	}
	if cr.Fault != nil {
		return nil, cr.Fault.Err()
	}
	return cr.Result, nil
}
