package env

import (
	"fmt"

	"github.com/govm-net/guestenv/codec"
	"github.com/govm-net/guestenv/hostfn"
)

// maxTopicWidth bounds the hash width an environment can use for topics.
const maxTopicWidth = 64

// Event is implemented by everything a contract emits. The event chooses
// its topics; the environment only encodes them.
//
// EmitEvent encodes the event value itself as the event data, so events
// should be passed by value.
type Event interface {
	// TopicsLen is the number of topics Topics pushes.
	TopicsLen() int
	// Topics pushes exactly TopicsLen topics.
	Topics(b *TopicsBuilder)
}

// TopicsBuilder encodes the topic list of one event. Every topic occupies
// exactly the hash width of the environment: encodings that fit are zero
// padded, longer ones are replaced by their Blake2x256 hash.
type TopicsBuilder struct {
	host     hostfn.Host
	scope    ScopedBuffer
	width    int
	max      int
	expected int
	pushed   int
}

func newTopicsBuilder(host hostfn.Host, scope ScopedBuffer, width, max int) *TopicsBuilder {
	if width > maxTopicWidth {
		panic(fmt.Sprintf("env: topic width %d exceeds %d", width, maxTopicWidth))
	}
	return &TopicsBuilder{host: host, scope: scope, width: width, max: max}
}

// Expect starts the topic list with its length.
func (b *TopicsBuilder) Expect(n int) {
	if n > b.max {
		panic(fmt.Sprintf("env: event has %d topics, environment allows %d", n, b.max))
	}
	b.expected = n
	var scratch [9]byte
	b.scope.AppendBytes(codec.AppendCompact(scratch[:0], uint64(n)))
}

// PushTopic appends the topic derived from the encoding of v.
func (b *TopicsBuilder) PushTopic(v any) {
	if b.pushed == b.expected {
		panic(fmt.Sprintf("env: more than %d topics pushed", b.expected))
	}
	split := b.scope.Split()
	enc := split.TakeEncoded(v)

	var topic [maxTopicWidth]byte
	if len(enc) <= b.width {
		copy(topic[:], enc)
	} else {
		var digest [Blake2x256Len]byte
		b.host.HashBlake2x256(enc, &digest)
		copy(topic[:b.width], digest[:])
	}
	b.scope.AppendBytes(topic[:b.width])
	b.pushed++
}

// Output freezes the topic list and returns it together with the scope
// the event data can be encoded into.
func (b *TopicsBuilder) Output() (ScopedBuffer, []byte) {
	if b.pushed != b.expected {
		panic(fmt.Sprintf("env: %d topics pushed, %d expected", b.pushed, b.expected))
	}
	topics := b.scope.TakeAppended()
	return b.scope, topics
}
