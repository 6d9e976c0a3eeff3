package migration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/gallery-migrate/internal/errors"
)

func recordingPipeline(guard *TimeGuard, ran *[]Stage, hooks map[Stage]func() (bool, error)) *Pipeline {
	p := NewPipeline(guard)
	for _, s := range []Stage{StageCategories, StageRebuild, StageImages, StageComments} {
		p.Handle(s, func(context.Context) (bool, error) {
			*ran = append(*ran, s)
			if hook, ok := hooks[s]; ok {
				return hook()
			}
			return true, nil
		})
	}
	return p
}

func TestPipeline_FallsThroughAllStages(t *testing.T) {
	t.Parallel()
	var ran []Stage
	var entered []Stage
	p := recordingPipeline(NewTimeGuard(newFakeClock(), 0), &ran, nil)
	p.OnEnter(func(s Stage) { entered = append(entered, s) })

	last, done, err := p.Run(context.Background(), StageCategories)

	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, StageDone, last)
	assert.Equal(t, []Stage{StageCategories, StageRebuild, StageImages, StageComments}, ran)
	assert.Equal(t, []Stage{StageRebuild, StageImages, StageComments, StageDone}, entered)
}

func TestPipeline_ResumesAtStage(t *testing.T) {
	t.Parallel()
	var ran []Stage
	p := recordingPipeline(NewTimeGuard(newFakeClock(), 0), &ran, nil)

	_, done, err := p.Run(context.Background(), StageImages)

	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []Stage{StageImages, StageComments}, ran)
}

func TestPipeline_StopsWhenStageIsInterrupted(t *testing.T) {
	t.Parallel()
	var ran []Stage
	p := recordingPipeline(NewTimeGuard(newFakeClock(), 0), &ran, map[Stage]func() (bool, error){
		StageImages: func() (bool, error) { return false, nil },
	})

	last, done, err := p.Run(context.Background(), StageCategories)

	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, StageImages, last)
	assert.Equal(t, []Stage{StageCategories, StageRebuild, StageImages}, ran)
}

func TestPipeline_GuardCheckedBetweenStages(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	var ran []Stage
	p := recordingPipeline(NewTimeGuard(clock, time.Second), &ran, map[Stage]func() (bool, error){
		StageCategories: func() (bool, error) {
			clock.Advance(time.Second)
			return true, nil
		},
	})

	last, done, err := p.Run(context.Background(), StageCategories)

	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, StageRebuild, last, "rebuild is entered on the next invocation")
	assert.Equal(t, []Stage{StageCategories}, ran)
}

func TestPipeline_FirstStageAlwaysStarts(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	guard := NewTimeGuard(clock, time.Second)
	clock.Advance(time.Hour)
	var ran []Stage
	p := recordingPipeline(guard, &ran, map[Stage]func() (bool, error){
		StageRebuild: func() (bool, error) { return true, nil },
	})

	last, _, err := p.Run(context.Background(), StageRebuild)

	require.NoError(t, err)
	assert.Equal(t, []Stage{StageRebuild}, ran)
	assert.Equal(t, StageImages, last)
}

func TestPipeline_StageError(t *testing.T) {
	t.Parallel()
	boom := errors.NewStd("write failed")
	var ran []Stage
	p := recordingPipeline(NewTimeGuard(newFakeClock(), 0), &ran, map[Stage]func() (bool, error){
		StageRebuild: func() (bool, error) { return false, boom },
	})

	last, done, err := p.Run(context.Background(), StageCategories)

	assert.ErrorIs(t, err, boom)
	assert.False(t, done)
	assert.Equal(t, StageRebuild, last)
}

func TestPipeline_MissingHandler(t *testing.T) {
	t.Parallel()
	p := NewPipeline(NewTimeGuard(newFakeClock(), 0))

	_, _, err := p.Run(context.Background(), StageComments)

	require.Error(t, err)
	assert.Equal(t, KindConfiguration, Classify(err))
}

func TestPipeline_DoneRunsNothing(t *testing.T) {
	t.Parallel()
	var ran []Stage
	p := recordingPipeline(NewTimeGuard(newFakeClock(), 0), &ran, nil)

	last, done, err := p.Run(context.Background(), StageDone)

	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, StageDone, last)
	assert.Empty(t, ran)
}
