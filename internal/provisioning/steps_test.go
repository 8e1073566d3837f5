package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingSteps(log *[]string, failAt string) []Step {
	names := []string{"create-agent", "prepare-agent", "create-alias"}
	steps := make([]Step, 0, len(names))
	for _, name := range names {
		name := name
		steps = append(steps, Step{
			Name: name,
			Run: func(context.Context) error {
				if name == failAt {
					return errors.New("boom")
				}
				*log = append(*log, "run:"+name)
				return nil
			},
			Compensate: func(context.Context) error {
				*log = append(*log, "undo:"+name)
				return nil
			},
		})
	}
	return steps
}

func TestSequence_Success(t *testing.T) {
	var log []string
	seq := &Sequence{Name: "agent", Steps: recordingSteps(&log, ""), Logger: testLogger()}

	require.NoError(t, seq.Run(context.Background()))
	assert.Equal(t, []string{"run:create-agent", "run:prepare-agent", "run:create-alias"}, log)
}

func TestSequence_FailureWithoutRollback(t *testing.T) {
	var log []string
	seq := &Sequence{Name: "agent", Steps: recordingSteps(&log, "create-alias"), Logger: testLogger()}

	err := seq.Run(context.Background())
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "create-alias", stepErr.Step)
	assert.Equal(t, []string{"create-agent", "prepare-agent"}, stepErr.Completed)
	assert.Equal(t, []string{"run:create-agent", "run:prepare-agent"}, log)
}

func TestSequence_FailureWithRollback(t *testing.T) {
	var log []string
	seq := &Sequence{Name: "agent", Steps: recordingSteps(&log, "create-alias"), Rollback: true, Logger: testLogger()}

	require.Error(t, seq.Run(context.Background()))
	assert.Equal(t, []string{
		"run:create-agent", "run:prepare-agent",
		"undo:prepare-agent", "undo:create-agent",
	}, log)
}

func TestSequence_CompensationFailureContinues(t *testing.T) {
	var log []string
	steps := []Step{
		{Name: "a", Run: func(context.Context) error { return nil }, Compensate: func(context.Context) error {
			log = append(log, "undo:a")
			return nil
		}},
		{Name: "b", Run: func(context.Context) error { return nil }, Compensate: func(context.Context) error {
			return errors.New("cannot undo")
		}},
		{Name: "c", Run: func(context.Context) error { return errors.New("fail") }},
	}
	seq := &Sequence{Name: "seq", Steps: steps, Rollback: true, Logger: testLogger()}

	require.Error(t, seq.Run(context.Background()))
	assert.Equal(t, []string{"undo:a"}, log)
}
