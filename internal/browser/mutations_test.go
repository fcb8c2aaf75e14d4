// internal/browser/mutations_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chatdrop/chatdrop/api/schemas"
)

func newBareSession(t *testing.T) *Session {
	t.Helper()
	return &Session{
		logger:      zaptest.NewLogger(t),
		subscribers: make(map[int]subscription),
	}
}

func TestScopeAdmits(t *testing.T) {
	structural := schemas.MutationScope{Subtree: true, Structural: true}
	classOnly := schemas.MutationScope{Selector: "#dialog", Attributes: []string{"class"}}

	assert.True(t, scopeAdmits(structural, schemas.Mutation{Kind: schemas.MutationChildAdded}))
	assert.True(t, scopeAdmits(structural, schemas.Mutation{Kind: schemas.MutationChildRemoved}))
	assert.False(t, scopeAdmits(structural, schemas.Mutation{Kind: schemas.MutationAttribute, Attribute: "class"}))

	assert.True(t, scopeAdmits(classOnly, schemas.Mutation{Kind: schemas.MutationAttribute, Attribute: "class"}))
	assert.False(t, scopeAdmits(classOnly, schemas.Mutation{Kind: schemas.MutationAttribute, Attribute: "style"}))
	assert.False(t, scopeAdmits(classOnly, schemas.Mutation{Kind: schemas.MutationChildAdded}))
}

func TestPublish_FansOutToMatchingSubscribers(t *testing.T) {
	s := newBareSession(t)

	var structuralBatches, attributeBatches int
	_, err := s.Subscribe(schemas.MutationScope{Structural: true}, func([]schemas.Mutation) {
		structuralBatches++
	})
	require.NoError(t, err)
	_, err = s.Subscribe(schemas.MutationScope{Attributes: []string{"class"}}, func([]schemas.Mutation) {
		attributeBatches++
	})
	require.NoError(t, err)

	s.publish(schemas.Mutation{Kind: schemas.MutationChildAdded})
	s.publish(schemas.Mutation{Kind: schemas.MutationAttribute, Attribute: "class"})
	s.publish(schemas.Mutation{Kind: schemas.MutationAttribute, Attribute: "style"})

	assert.Equal(t, 1, structuralBatches)
	assert.Equal(t, 1, attributeBatches)
}

func TestSubscribe_ReleaseStopsDelivery(t *testing.T) {
	s := newBareSession(t)

	batches := 0
	release, err := s.Subscribe(schemas.MutationScope{Structural: true}, func([]schemas.Mutation) {
		batches++
	})
	require.NoError(t, err)

	s.publish(schemas.Mutation{Kind: schemas.MutationChildAdded})
	release()
	s.publish(schemas.Mutation{Kind: schemas.MutationChildAdded})
	release() // releasing twice is safe

	assert.Equal(t, 1, batches)
}
