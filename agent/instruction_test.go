package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/agentcity/core"
)

func TestInstructionStatic(t *testing.T) {
	in := NewInstructionFromText("be helpful")
	assert.True(t, in.IsStatic())

	text, err := in.Resolve(nil)
	assert.NoError(t, err)
	assert.Equal(t, "be helpful", text)
}

func TestInstructionFromFunc(t *testing.T) {
	in := NewInstructionFromFunc(func(rc *core.RunContext) (string, error) {
		return fmt.Sprintf("you are in room %s", rc.RoomID), nil
	})
	assert.False(t, in.IsStatic())

	f := newCityFixture(t)
	rc := f.runContext(10, "hi")
	text, err := in.Resolve(rc)
	assert.NoError(t, err)
	assert.Equal(t, "you are in room room-1", text)
}

func TestInstructionProviderError(t *testing.T) {
	in := NewInstructionFromFunc(func(*core.RunContext) (string, error) {
		return "", fmt.Errorf("state unavailable")
	})
	_, err := in.Resolve(nil)
	assert.Error(t, err)
}

func TestPersonaAgentDynamicInstruction(t *testing.T) {
	f := newCityFixture(t)
	p := f.graph.Lookup("artist")
	in := NewInstructionFromText("paint everything blue")
	a := NewPersonaAgent(p, f.llm, func(o *PersonaAgentOptions) {
		o.Instruction = &in
	})

	rc := f.runContext(10, "hello")
	assert.NoError(t, a.Run(rc))

	reqs := f.llm.Requests()
	if assert.Len(t, reqs, 1) {
		assert.Equal(t, "paint everything blue", reqs[0].Instructions)
	}
}
