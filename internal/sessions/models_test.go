package sessions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageOrdering(t *testing.T) {
	ordered := []Stage{
		StageCreated,
		StageSketchUploaded,
		StageImageGenerated,
		StageModelGenerated,
		StageExported,
	}

	for i := 0; i < len(ordered)-1; i++ {
		assert.True(t, ordered[i].Before(ordered[i+1]),
			"%s should precede %s", ordered[i], ordered[i+1])
		assert.False(t, ordered[i+1].Before(ordered[i]))
	}

	assert.False(t, StageCreated.Before(StageCreated))
}

func TestStageValid(t *testing.T) {
	assert.True(t, StageCreated.Valid())
	assert.True(t, StageExported.Valid())
	assert.False(t, Stage("finished").Valid())
	assert.False(t, Stage("").Valid())
}
