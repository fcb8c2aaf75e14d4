// internal/browser/mutations.go
// schemas.MutationSource implementation over CDP DOM events. One listener
// is installed per session; subscriptions filter by change kind. Scope
// selectors are not resolved against CDP node IDs here — subscribers'
// predicates re-query the document, so a coarser notification only costs an
// extra predicate check, never a missed resolution.
package browser

import (
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/chatdrop/chatdrop/api/schemas"
)

// listen installs the session-wide CDP event listener feeding subscribers.
// Handlers run on chromedp's event goroutine and must not block.
func (s *Session) listen() {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *dom.EventChildNodeInserted:
			s.publish(schemas.Mutation{Kind: schemas.MutationChildAdded})
		case *dom.EventChildNodeRemoved:
			s.publish(schemas.Mutation{Kind: schemas.MutationChildRemoved})
		case *dom.EventChildNodeCountUpdated:
			s.publish(schemas.Mutation{Kind: schemas.MutationChildAdded})
		case *dom.EventAttributeModified:
			s.publish(schemas.Mutation{Kind: schemas.MutationAttribute, Attribute: e.Name, Value: e.Value})
		case *dom.EventAttributeRemoved:
			s.publish(schemas.Mutation{Kind: schemas.MutationAttribute, Attribute: e.Name})
		}
	})
}

// publish fans one notification out to every subscription whose scope
// admits it.
func (s *Session) publish(m schemas.Mutation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subscribers {
		if scopeAdmits(sub.scope, m) {
			sub.fn([]schemas.Mutation{m})
		}
	}
}

func scopeAdmits(scope schemas.MutationScope, m schemas.Mutation) bool {
	switch m.Kind {
	case schemas.MutationChildAdded, schemas.MutationChildRemoved:
		return scope.Structural
	case schemas.MutationAttribute:
		for _, name := range scope.Attributes {
			if name == m.Attribute {
				return true
			}
		}
	}
	return false
}

// Subscribe registers fn for notification batches matching scope. The
// returned release function is idempotent per the MutationSource contract's
// exactly-once requirement being the caller's side; releasing twice is
// still safe here.
func (s *Session) Subscribe(scope schemas.MutationScope, fn func([]schemas.Mutation)) (func(), error) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = subscription{scope: scope, fn: fn}
	count := len(s.subscribers)
	s.mu.Unlock()

	s.logger.Debug("Mutation subscription added.", zap.Int("id", id), zap.Int("active", count))

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}, nil
}
