package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	current  *Dialect
	rejected Feature
}

func (s *fakeSession) SetDialect(d *Dialect) { s.current = d }

func (s *fakeSession) Rejected() (Feature, bool) { return s.rejected, s.rejected != 0 }

func TestManagerRelaxesMonotonically(t *testing.T) {
	m := NewManager()
	s := &fakeSession{}

	require.NoError(t, m.BeginParse(s))
	assert.Equal(t, Basic, s.current)

	s.rejected = FreeLoop
	m.EndParse(s)
	s.rejected = 0

	require.NoError(t, m.BeginParse(s))
	assert.Equal(t, Rythm, s.current)

	// A later clean attempt never moves back to a stricter dialect.
	m.EndParse(s)
	require.NoError(t, m.BeginParse(s))
	assert.Equal(t, Rythm, s.current)
}

func TestManagerExhausted(t *testing.T) {
	strict := New("strict", "@", Scripting)
	m := NewManager(strict)
	s := &fakeSession{}

	require.NoError(t, m.BeginParse(s))
	s.rejected = Scripting
	m.EndParse(s)

	err := m.BeginParse(s)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestPinnedManagerNeverAdvances(t *testing.T) {
	m := NewPinnedManager(Basic)
	s := &fakeSession{}
	require.True(t, m.Pinned())

	require.NoError(t, m.BeginParse(s))
	s.rejected = Scripting
	m.EndParse(s)
	require.NoError(t, m.BeginParse(s))
	assert.Equal(t, Basic, s.current)
}

func TestFind(t *testing.T) {
	d, ok := Find(Defaults(), "RYTHM")
	require.True(t, ok)
	assert.Equal(t, Rythm, d)
	assert.False(t, Basic.Allows(ComplexExpression))
	assert.True(t, Rythm.Allows(ComplexExpression))
}
