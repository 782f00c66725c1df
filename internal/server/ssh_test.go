package server

import (
	"testing"

	"github.com/Gaurav-Gosain/linkpeek/internal/app"
	"github.com/Gaurav-Gosain/linkpeek/internal/config"
	"github.com/Gaurav-Gosain/linkpeek/internal/store"
	"github.com/Gaurav-Gosain/linkpeek/pkg/linkpeek"
	"github.com/charmbracelet/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	ssh.Session
	command []string
	env     []string
}

func (f *fakeSession) Pty() (ssh.Pty, <-chan ssh.Window, bool) {
	return ssh.Pty{Term: "xterm-256color"}, nil, true
}
func (f *fakeSession) Environ() []string { return f.env }
func (f *fakeSession) Command() []string { return f.command }
func (f *fakeSession) User() string      { return "reader" }

func newTestServer() *SSHServer {
	return NewSSHServer(SSHServerConfig{DefaultSource: "https://go.dev/doc/"},
		config.NewStaticProvider(config.DefaultSettings()), store.NewMemory(), nil)
}

func TestNewSSHServerDefaults(t *testing.T) {
	s := NewSSHServer(SSHServerConfig{}, config.NewStaticProvider(config.DefaultSettings()), nil, nil)
	assert.Equal(t, "localhost:2222", s.Addr())
	assert.NotNil(t, s.store)

	s = NewSSHServer(SSHServerConfig{Host: "0.0.0.0", Port: "2022"}, config.NewStaticProvider(config.DefaultSettings()), nil, nil)
	assert.Equal(t, "0.0.0.0:2022", s.Addr())
}

func TestSessionSource(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no command", nil, "https://go.dev/doc/"},
		{"web page", []string{"https://example.com/a"}, "https://example.com/a"},
		{"plain http", []string{"http://example.com"}, "http://example.com"},
		{"server file", []string{"/etc/passwd"}, "https://go.dev/doc/"},
		{"file url", []string{"file:///etc/passwd"}, "https://go.dev/doc/"},
		{"missing host", []string{"https://"}, "https://go.dev/doc/"},
	}
	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.source(tt.args))
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer()
	sess := &fakeSession{command: []string{"https://example.com/a"}, env: []string{"COLORTERM=truecolor"}}

	model, opts := s.handler(sess)
	v, ok := model.(*linkpeek.Model)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a", v.Source)
	assert.Len(t, opts, len(linkpeek.ProgramOptions()))
	assert.Equal(t, 1, s.Sessions())

	called := false
	s.release(func(ssh.Session) { called = true })(sess)
	assert.True(t, called)
	assert.Zero(t, s.Sessions())
	assert.True(t, v.Engine.State().Inert, "the session's engine is closed")
}

func TestRemoteOpenerHasNoBrowser(t *testing.T) {
	assert.ErrorIs(t, remoteOpener{}.Open("https://example.com"), app.ErrNoBrowser)
}
