package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/keymapd/pkg/keys"
)

func feed(t *testing.T, e *Engine, seq keys.KeySequence) (keys.KeyAction, bool) {
	t.Helper()
	var (
		action keys.KeyAction
		ok     bool
	)
	for i, k := range seq {
		var err error
		action, ok, err = e.MakeInput(k)
		require.NoError(t, err, "chord %d (%s)", i, k)
		if i < len(seq)-1 {
			require.False(t, ok, "chord %d (%s) resolved early", i, k)
		}
	}
	return action, ok
}

func TestEngineStartsInInitWithDefaultMode(t *testing.T) {
	e := NewEngine(nil)
	assert.Equal(t, StateInit, e.State())
	assert.Equal(t, DefaultMode, e.Mode())
	assert.Equal(t, []string{DefaultMode}, e.Modes().Modes())
}

func TestSequenceResolvesOnFinalChordOnly(t *testing.T) {
	e := NewEngine(nil)
	seq := keys.Seq(space, keyA, keyB)
	require.NoError(t, e.Register(seq, keys.ShellCommand("abc"), ""))

	action, ok := feed(t, e, seq)
	require.True(t, ok)
	assert.Equal(t, keys.ShellCommand("abc"), action)
	assert.Equal(t, StateAtLeaf, e.State())
	assert.Empty(t, e.Partial())

	last, ok := e.LastResolved()
	require.True(t, ok)
	assert.Equal(t, keyB, last.Key)
}

func TestPartialSequenceIsTracked(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.Register(keys.Seq(space, keyA, keyB), keys.Nop(), ""))

	_, ok, err := e.MakeInput(space)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = e.MakeInput(keyA)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, StateAtRoot, e.State())
	assert.Equal(t, keys.Seq(space, keyA), e.Partial())
}

func TestMatchingResumesFromRootAfterResolving(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.Register(keys.Seq(keyA), keys.ShellCommand("a"), ""))

	for i := 0; i < 3; i++ {
		action, ok, err := e.MakeInput(keyA)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, keys.ShellCommand("a"), action)
	}
}

func TestSharedPrefixesResolveIndependently(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.Register(keys.Seq(space, keyA), keys.ShellCommand("act1"), ""))
	require.NoError(t, e.Register(keys.Seq(space, keyB), keys.ShellCommand("act2"), ""))

	action, ok := feed(t, e, keys.Seq(space, keyA))
	require.True(t, ok)
	assert.Equal(t, keys.ShellCommand("act1"), action)

	e.Reset()
	action, ok = feed(t, e, keys.Seq(space, keyB))
	require.True(t, ok)
	assert.Equal(t, keys.ShellCommand("act2"), action)
}

func TestUnknownChordReportsPrefixAndKeepsState(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.Register(keys.Seq(space, keyA), keys.Nop(), ""))

	_, _, err := e.MakeInput(space)
	require.NoError(t, err)

	_, ok, err := e.MakeInput(keyB)
	assert.False(t, ok)
	var notFound *KeyNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, keys.Seq(space), notFound.Prefix)
	assert.Equal(t, keyB, notFound.Key)
	assert.Equal(t, keys.Seq(space), e.Partial())

	discarded := e.Reset()
	assert.Equal(t, keys.Seq(space), discarded)
	assert.Empty(t, e.Partial())
	assert.Equal(t, StateAtRoot, e.State())
}

func TestSentinelAndModifierOnlyChordsAreIgnored(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.Register(keys.Seq(space, keyA), keys.Nop(), ""))
	_, _, err := e.MakeInput(space)
	require.NoError(t, err)

	for _, k := range []keys.KeySpec{keys.None, {Mods: keys.Mods(keys.Shift), Code: keys.Null}} {
		action, ok, err := e.MakeInput(k)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, keys.KeyAction{}, action)
		assert.Equal(t, keys.Seq(space), e.Partial())
		assert.Equal(t, StateAtRoot, e.State())
	}

	fresh := NewEngine(nil)
	_, _, err = fresh.MakeInput(keys.None)
	require.NoError(t, err)
	assert.Equal(t, StateInit, fresh.State())
}

func TestRegisterUnknownModeFails(t *testing.T) {
	e := NewEngine(nil)
	err := e.Register(keys.Seq(keyA), keys.Nop(), "visual")
	var noMode *NoSuchModeError
	require.ErrorAs(t, err, &noMode)
	assert.Equal(t, "visual", noMode.Mode)
	assert.ErrorIs(t, e.Unregister(keys.Seq(keyA), "visual"), ErrNoSuchMode)
}

func TestBindThenUnbindRestoresPreviousBehaviour(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.Register(keys.Seq(keyB), keys.Nop(), ""))
	seq := keys.Seq(space, keyA)
	require.NoError(t, e.Register(seq, keys.ShellCommand("x"), ""))
	require.NoError(t, e.Unregister(seq, ""))

	_, _, err := e.MakeInput(space)
	var notFound *KeyNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Empty(t, notFound.Prefix)
	assert.Equal(t, space, notFound.Key)

	_, ok, err := e.MakeInput(keyB)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSwitchModeUnknownLeavesStateUnchanged(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.Register(keys.Seq(space, keyA), keys.Nop(), ""))
	_, _, err := e.MakeInput(space)
	require.NoError(t, err)

	err = e.SwitchMode("nowhere")
	assert.ErrorIs(t, err, ErrNoSuchMode)
	assert.Equal(t, DefaultMode, e.Mode())
	assert.Equal(t, keys.Seq(space), e.Partial())
	assert.Equal(t, StateAtRoot, e.State())
}

func TestSwitchModeDiscardsPartialInput(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.AddMode("insert"))
	require.NoError(t, e.Register(keys.Seq(space, keyA), keys.Nop(), ""))
	require.NoError(t, e.Register(keys.Seq(keyA), keys.ShellCommand("insert-a"), "insert"))

	_, _, err := e.MakeInput(space)
	require.NoError(t, err)
	require.NoError(t, e.SwitchMode("insert"))
	assert.Empty(t, e.Partial())

	action, ok, err := e.MakeInput(keyA)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, keys.ShellCommand("insert-a"), action)
}

func TestResetKeepsCurrentMode(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.AddMode("insert"))
	require.NoError(t, e.SwitchMode("insert"))
	e.Reset()
	assert.Equal(t, "insert", e.Mode())
}

func TestModeChangeExample(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.AddMode("insert"))
	require.NoError(t, e.Register(keys.Seq(ctrlC), keys.ModeChange("insert"), ""))

	action, ok, err := e.MakeInput(ctrlC)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, keys.ModeChange("insert"), action)

	// The dispatcher applies mode changes.
	require.NoError(t, e.SwitchMode(action.Mode))
	assert.Equal(t, "insert", e.Mode())

	_, _, err = e.MakeInput(keyA)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestEditingActiveModeDropsPartialInput(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.Register(keys.Seq(space, keyA), keys.Nop(), ""))
	_, _, err := e.MakeInput(space)
	require.NoError(t, err)

	require.NoError(t, e.Register(keys.Seq(space), keys.ShellCommand("leader"), ""))
	assert.Empty(t, e.Partial())

	action, ok, err := e.MakeInput(space)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, keys.ShellCommand("leader"), action)
}

func TestStrictEngineReportsMode(t *testing.T) {
	e := NewEngine(nil)
	e.SetPolicy(BindStrict)
	require.NoError(t, e.Register(keys.Seq(keyA), keys.Nop(), ""))

	err := e.Register(keys.Seq(keyA), keys.Nop(), "")
	var bound *KeyAlreadyBoundError
	require.ErrorAs(t, err, &bound)
	assert.Equal(t, DefaultMode, bound.Mode)
	assert.Contains(t, err.Error(), `mode "default"`)
}

func TestRemoveModeFallsBackToDefault(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.AddMode("nav"))
	require.NoError(t, e.SwitchMode("nav"))
	require.NoError(t, e.RemoveMode("nav"))
	assert.Equal(t, DefaultMode, e.Mode())

	assert.ErrorIs(t, e.RemoveMode(DefaultMode), ErrDefaultMode)
	assert.ErrorIs(t, e.RemoveMode("nav"), ErrNoSuchMode)
	assert.ErrorIs(t, e.AddMode(" "), ErrEmptyModeName)
}

func TestReplaceKeepsModeWhenPresent(t *testing.T) {
	e := NewEngine(nil)
	require.NoError(t, e.AddMode("nav"))
	require.NoError(t, e.SwitchMode("nav"))

	next := NewModeTable()
	require.NoError(t, next.AddMode("nav"))
	require.NoError(t, next.Bind("nav", keys.Seq(keyA), keys.ShellCommand("new"), BindReplace))
	e.Replace(next)
	assert.Equal(t, "nav", e.Mode())

	action, ok, err := e.MakeInput(keyA)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, keys.ShellCommand("new"), action)

	e.Replace(NewModeTable())
	assert.Equal(t, DefaultMode, e.Mode())
}

func TestModeTableWalkAndLen(t *testing.T) {
	table := NewModeTable()
	require.NoError(t, table.AddMode("insert"))
	require.NoError(t, table.Bind("", keys.Seq(ctrlC), keys.ModeChange("insert"), BindReplace))
	require.NoError(t, table.Bind("insert", keys.Seq(keys.Chord(keys.KeyEscape)), keys.ModeChange(DefaultMode), BindReplace))

	var modes []string
	table.Walk(func(mode string, _ keys.KeySequence, _ keys.KeyAction) {
		modes = append(modes, mode)
	})
	assert.Equal(t, []string{DefaultMode, "insert"}, modes)
	assert.Equal(t, 2, table.Len())
}
