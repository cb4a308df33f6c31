package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed events.cue
var eventsCUE string

var definitions = map[string]string{
	TopicQuotes: "#QuoteV1",
	TopicNews:   "#NewsV1",
	TopicOrders: "#OrderV1",
	TopicFills:  "#FillV1",
}

// ErrUnknownTopic is returned by Validate for a topic without a schema.
var ErrUnknownTopic = errors.New("schema: unknown topic")

// ValidationError reports a payload that does not satisfy its topic's
// schema.
type ValidationError struct {
	Topic string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema: invalid %s payload: %v", e.Topic, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// cue.Context is not safe for concurrent use.
var (
	cueMu     sync.Mutex
	cueCtx    *cue.Context
	cueSchema cue.Value
	cueOnce   sync.Once
	cueErr    error
)

func compiled() (*cue.Context, cue.Value, error) {
	cueOnce.Do(func() {
		cueCtx = cuecontext.New()
		cueSchema = cueCtx.CompileString(eventsCUE, cue.Filename("events.cue"))
		cueErr = cueSchema.Err()
	})
	return cueCtx, cueSchema, cueErr
}

// Validate checks a JSON payload against the schema of topic. Missing
// fields with defaults are accepted; unknown fields are rejected.
func Validate(topic string, payload []byte) error {
	def, ok := definitions[topic]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}

	cueMu.Lock()
	defer cueMu.Unlock()

	ctx, schema, err := compiled()
	if err != nil {
		return fmt.Errorf("schema: compile: %w", err)
	}

	data := ctx.CompileBytes(payload, cue.Filename(topic+".json"))
	if err := data.Err(); err != nil {
		return &ValidationError{Topic: topic, Err: err}
	}

	unified := schema.LookupPath(cue.ParsePath(def)).Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Topic: topic, Err: err}
	}
	return nil
}
