// Package fakeclient implements an in-memory sessionpool.ServiceClient
// for tests, standing in for a real database's RPC surface.
package fakeclient

import (
	"context"
	"sync"

	"github.com/google/uuid"

	sessionpool "github.com/dbsessionpool/dbsessionpool"
	"github.com/dbsessionpool/dbsessionpool/internal/xerrors"
)

// Client is a sessionpool.ServiceClient that mints session names with
// uuid and lets a test script inject failures.
type Client struct {
	mu sync.Mutex

	createErr   error
	deleteErr   error
	executeErr  error
	beginErr    error
	retryable   bool
	sessions    map[string]bool // name -> exists
	created     int
	deleted     int
}

func New() *Client {
	return &Client{sessions: make(map[string]bool)}
}

// FailCreate makes every subsequent CreateSession call return err. If
// retryable is true, the error satisfies xerrors.IsRetryable.
func (c *Client) FailCreate(err error, retryable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createErr = err
	c.retryable = retryable
}

func (c *Client) FailDelete(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteErr = err
}

func (c *Client) FailExecute(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executeErr = err
}

func (c *Client) FailBeginTransaction(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beginErr = err
}

func (c *Client) Recover() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createErr = nil
	c.deleteErr = nil
	c.executeErr = nil
	c.beginErr = nil
}

func (c *Client) CreatedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

func (c *Client) DeletedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleted
}

func (c *Client) CreateSession(ctx context.Context, database string) (sessionpool.SessionHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.createErr != nil {
		err := c.createErr
		if c.retryable {
			err = xerrors.Retryable(err)
		}
		return sessionpool.SessionHandle{}, err
	}

	name := database + "/" + uuid.NewString()
	c.sessions[name] = true
	c.created++

	return sessionpool.SessionHandle{Name: name}, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deleteErr != nil {
		return c.deleteErr
	}

	delete(c.sessions, sessionName)
	c.deleted++

	return nil
}

func (c *Client) ExecuteSql(ctx context.Context, sessionName, sql string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sessions[sessionName] {
		return xerrors.New("fakeclient: unknown session " + sessionName)
	}

	return c.executeErr
}

func (c *Client) BeginTransaction(ctx context.Context, sessionName string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.beginErr != nil {
		return "", c.beginErr
	}

	if !c.sessions[sessionName] {
		return "", xerrors.New("fakeclient: unknown session " + sessionName)
	}

	return "tx/" + uuid.NewString(), nil
}
