package core

import "sync"

// ResultCode is the terminal outcome of a command
type ResultCode string

const (
	// ResultSuccess reports that the command was executed
	ResultSuccess ResultCode = "success"
	// ResultFailure reports that the command was rejected or failed
	ResultFailure ResultCode = "failure"
)

// CommandResult is delivered once per command.
type CommandResult struct {
	Code ResultCode
	Err  error
}

// ResultToken is a one-shot handle for a command outcome. Only the first
// Succeed or Fail call is delivered; later calls report false.
type ResultToken struct {
	once   sync.Once
	mu     sync.Mutex
	result *CommandResult
	ch     chan CommandResult
}

// NewResultToken returns a token and the channel its outcome is delivered
// on. The channel receives exactly one value and is then closed.
func NewResultToken() (*ResultToken, <-chan CommandResult) {
	ch := make(chan CommandResult, 1)
	return &ResultToken{ch: ch}, ch
}

// Succeed resolves the command as successful.
func (t *ResultToken) Succeed() bool {
	return t.resolve(CommandResult{Code: ResultSuccess})
}

// Fail resolves the command as failed.
func (t *ResultToken) Fail(err error) bool {
	return t.resolve(CommandResult{Code: ResultFailure, Err: err})
}

// Resolved reports whether an outcome has been delivered.
func (t *ResultToken) Resolved() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result != nil
}

// Result returns the delivered outcome, if any.
func (t *ResultToken) Result() (CommandResult, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result == nil {
		return CommandResult{}, false
	}
	return *t.result, true
}

func (t *ResultToken) resolve(result CommandResult) bool {
	delivered := false
	t.once.Do(func() {
		t.mu.Lock()
		t.result = &result
		t.mu.Unlock()
		t.ch <- result
		close(t.ch)
		delivered = true
	})
	return delivered
}
