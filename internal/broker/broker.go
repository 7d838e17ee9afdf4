package broker

import "sync"

// Топики живой ленты
const (
	TopicTriageResults = "triage_results"
	TopicCaseUpdates   = "case_updates"
)

// Broker - типизированная pub/sub шина между пайплайнами и
// websocket-хабом. Один канал на топик, буферизованный.
type Broker[T any] struct {
	mu          sync.Mutex
	topics      map[string]chan T
	maxSizeChan uint
}

func New[T any](maxCountMsgInTopic uint) *Broker[T] {
	return &Broker[T]{
		topics:      make(map[string]chan T),
		maxSizeChan: maxCountMsgInTopic,
	}
}

func (b *Broker[T]) topic(name string) chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.topics[name]; !ok {
		b.topics[name] = make(chan T, b.maxSizeChan)
	}
	return b.topics[name]
}

// Publish не блокирует: при переполненном топике сообщение
// отбрасывается - лента best-effort. Отправка под мьютексом, чтобы
// не попасть в канал, закрываемый конкурентным CloseTopic.
func (b *Broker[T]) Publish(topic string, msg T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.topics[topic]
	if !ok {
		ch = make(chan T, b.maxSizeChan)
		b.topics[topic] = ch
	}
	select {
	case ch <- msg:
	default:
	}
}

func (b *Broker[T]) Subscribe(topic string) <-chan T {
	return b.topic(topic)
}

func (b *Broker[T]) CloseTopic(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if v, ok := b.topics[topic]; ok {
		close(v)
	}
	delete(b.topics, topic)
}
