// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/hireflow/careermem-go/pkg/llm"
)

// ErrNoResponse is returned when the script has no reply left and no
// fallback is set.
var ErrNoResponse = errors.New("llmtest: no scripted response")

// Reply is one scripted answer.
type Reply struct {
	Text string
	Err  error
}

// Call records one request received by the provider.
type Call struct {
	Messages []llm.Message
	Options  llm.GenerateOptions
}

// Provider replays scripted replies in order. When the script is exhausted it
// answers with Fallback, or ErrNoResponse if Fallback is nil.
//
// Respond, when set, takes precedence over the script and computes the reply
// from the request.
type Provider struct {
	mu       sync.Mutex
	script   []Reply
	calls    []Call
	Fallback *Reply
	Respond  func(ctx context.Context, messages []llm.Message) (string, error)
}

// New returns a provider that replies with texts in order.
func New(texts ...string) *Provider {
	p := &Provider{}
	for _, t := range texts {
		p.script = append(p.script, Reply{Text: t})
	}
	return p
}

// Always returns a provider that answers every call with text.
func Always(text string) *Provider {
	return &Provider{Fallback: &Reply{Text: text}}
}

// Failing returns a provider whose every call fails with err.
func Failing(err error) *Provider {
	return &Provider{Fallback: &Reply{Err: err}}
}

// Push appends replies to the script.
func (p *Provider) Push(replies ...Reply) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, replies...)
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return p.GenerateWithMessages(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

// GenerateWithMessages implements llm.Provider.
func (p *Provider) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	p.mu.Lock()
	p.calls = append(p.calls, Call{Messages: append([]llm.Message(nil), messages...), Options: *options})
	respond := p.Respond
	var reply *Reply
	if respond == nil {
		if len(p.script) > 0 {
			r := p.script[0]
			p.script = p.script[1:]
			reply = &r
		} else {
			reply = p.Fallback
		}
	}
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if respond != nil {
		return respond(ctx, messages)
	}
	if reply == nil {
		return "", ErrNoResponse
	}
	return reply.Text, reply.Err
}

// Calls returns a copy of the requests received so far.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallCount returns the number of requests received so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// Close implements llm.Provider.
func (p *Provider) Close() error {
	return nil
}
