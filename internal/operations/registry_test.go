package operations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFake(id string, deps ...string) *fakeStep {
	var calls []string
	return &fakeStep{BaseStage: NewBaseStage(id, id, deps), calls: &calls}
}

func ids(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.ID()
	}
	return out
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(newFake("parse")))
	assert.Error(t, r.Register(newFake("parse")), "duplicate id")
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(newFake("")))

	assert.True(t, r.Has("parse"))
	_, err := r.Get("missing")
	assert.Error(t, err)
}

func TestRegistry_GetDependencyOrder(t *testing.T) {
	tests := []struct {
		name    string
		steps   []*fakeStep
		want    []string
		wantErr bool
	}{
		{
			name:  "registration order without dependencies",
			steps: []*fakeStep{newFake("a"), newFake("b"), newFake("c")},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "dependencies registered late",
			steps: []*fakeStep{newFake("export", "impute"), newFake("impute", "parse"), newFake("parse")},
			want:  []string{"parse", "impute", "export"},
		},
		{
			name:    "unknown dependency",
			steps:   []*fakeStep{newFake("a", "ghost")},
			wantErr: true,
		},
		{
			name:    "cycle",
			steps:   []*fakeStep{newFake("a", "b"), newFake("b", "a")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for _, s := range tt.steps {
				require.NoError(t, r.Register(s))
			}

			got, err := r.GetDependencyOrder()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestDefaultStages_Order(t *testing.T) {
	r := NewRegistry()
	for _, s := range DefaultStages(Dependencies{}, false) {
		require.NoError(t, r.Register(s))
	}

	got, err := r.GetDependencyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{
		StageIDFetch, StageIDParse, StageIDCanonicalize, StageIDImpute,
		StageIDEnforce, StageIDAudit, StageIDExport,
	}, ids(got))
}
