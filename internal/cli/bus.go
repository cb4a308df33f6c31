package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pri-23-03/Gptrader/internal/bus"
	"github.com/pri-23-03/Gptrader/internal/schema"
)

// PublishOptions holds flags for the publish command.
type PublishOptions struct {
	*RootOptions
	Key        string
	NoValidate bool
}

// PublishResult is the output of the publish command.
type PublishResult struct {
	Topic     string `json:"topic"`
	Key       string `json:"key"`
	Partition int    `json:"partition"`
	Offset    int64  `json:"offset"`
}

func (r PublishResult) String() string {
	return fmt.Sprintf("published %s/%d@%d (key %q)", r.Topic, r.Partition, r.Offset, r.Key)
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PublishOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "publish <topic> <json|->",
		Short: "Publish one JSON payload",
		Long: `Append one JSON payload to a topic. Use - to read the payload from stdin.

Payloads for the versioned topics (quotes.v1, news.v1, orders.v1, fills.v1)
are checked against their schema first. Without --key the partition key is
the payload's partition_key, else its symbol, else "default".

Examples:
  gptrader publish quotes.v1 '{"v":1,"topic":"quotes.v1","symbol":"AAPL",...}'
  echo '{"hello":"world"}' | gptrader publish scratch - --key k1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "partition key (default derived from the payload)")
	cmd.Flags().BoolVar(&opts.NoValidate, "no-validate", false, "skip schema validation")

	return cmd
}

func runPublish(opts *PublishOptions, cmd *cobra.Command, topic, arg string) error {
	raw := []byte(arg)
	if arg == "-" {
		var err error
		if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
			return WrapExitError(ExitCommandError, "read payload", err)
		}
	}
	if !json.Valid(raw) {
		return NewExitError(ExitCommandError, "payload is not valid JSON")
	}

	if !opts.NoValidate {
		err := schema.Validate(topic, raw)
		switch {
		case errors.Is(err, schema.ErrUnknownTopic):
			opts.logger().Debug("no schema for topic", "topic", topic)
		case err != nil:
			return WrapExitError(ExitCommandError, "payload rejected", err)
		}
	}

	key := opts.Key
	if !cmd.Flags().Changed("key") {
		key = payloadKey(raw)
	}

	b, _, err := opts.openBackends()
	if err != nil {
		return err
	}
	defer b.Close()

	env, err := b.Bus.Publish(topic, key, json.RawMessage(raw))
	if err != nil {
		return busError(err)
	}
	return opts.output(cmd).Success(PublishResult{Topic: env.Topic, Key: key, Partition: env.Partition, Offset: env.Offset})
}

// payloadKey derives the partition key of a JSON payload. Non-object
// payloads get the default key.
func payloadKey(raw []byte) string {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return schema.DefaultKey
	}
	return schema.PartitionKey(m)
}

// ConsumeOptions holds flags for the consume command.
type ConsumeOptions struct {
	*RootOptions
	Partitions []int
	Commit     bool
	Limit      int
}

// ConsumeResult is the output of the consume command.
type ConsumeResult struct {
	Group     string         `json:"group"`
	Topic     string         `json:"topic"`
	Records   []bus.Envelope `json:"records"`
	Committed bool           `json:"committed"`
}

func (r ConsumeResult) String() string {
	if len(r.Records) == 0 {
		return "No new records."
	}
	var b strings.Builder
	for _, env := range r.Records {
		fmt.Fprintf(&b, "%s/%d@%d %s\n", env.Topic, env.Partition, env.Offset, env.Payload)
	}
	if r.Committed {
		fmt.Fprintf(&b, "committed %d record(s) for %s", len(r.Records), r.Group)
	} else {
		fmt.Fprintf(&b, "%d record(s), not committed", len(r.Records))
	}
	return b.String()
}

// NewConsumeCommand creates the consume command.
func NewConsumeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConsumeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "consume <group> <topic>",
		Short: "Print a consumer group's unread records",
		Long: `Print the records a consumer group has not committed, in ascending
partition order and offset order within a partition. Offsets only move
with --commit.

Examples:
  gptrader consume g1 quotes.v1 --limit 10
  gptrader consume g1 quotes.v1 --partitions 0,2 --commit`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsume(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().IntSliceVar(&opts.Partitions, "partitions", nil, "partitions to read (default all)")
	cmd.Flags().BoolVar(&opts.Commit, "commit", false, "commit what was printed")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "stop after this many records (0 for no limit)")

	return cmd
}

func runConsume(opts *ConsumeOptions, cmd *cobra.Command, group, topic string) error {
	b, _, err := opts.openBackends()
	if err != nil {
		return err
	}
	defer b.Close()

	records := []bus.Envelope{}
	for env, err := range b.Bus.Subscribe(group, topic, opts.Partitions...) {
		if err != nil {
			return busError(err)
		}
		records = append(records, env)
		if opts.Limit > 0 && len(records) == opts.Limit {
			break
		}
	}

	if opts.Commit {
		for _, env := range records {
			if err := b.Bus.Commit(group, env); err != nil {
				return err
			}
		}
	}
	return opts.output(cmd).Success(ConsumeResult{Group: group, Topic: topic, Records: records, Committed: opts.Commit})
}

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Partitions []int
}

// ResetResult is the output of the reset command.
type ResetResult struct {
	Group      string `json:"group"`
	Topic      string `json:"topic"`
	Partitions []int  `json:"partitions,omitempty"`
}

func (r ResetResult) String() string {
	which := "all partitions"
	if len(r.Partitions) > 0 {
		which = fmt.Sprintf("partitions %v", r.Partitions)
	}
	return fmt.Sprintf("reset %s on %s (%s)", r.Group, r.Topic, which)
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset <group> <topic>",
		Short: "Rewind a consumer group to offset 0",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := opts.openBackends()
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.Bus.Reset(args[0], args[1], opts.Partitions...); err != nil {
				return busError(err)
			}
			return opts.output(cmd).Success(ResetResult{Group: args[0], Topic: args[1], Partitions: opts.Partitions})
		},
	}

	cmd.Flags().IntSliceVar(&opts.Partitions, "partitions", nil, "partitions to reset (default all)")

	return cmd
}

// busError marks bad names and partitions as command errors.
func busError(err error) error {
	if errors.Is(err, bus.ErrInvalidName) || errors.Is(err, bus.ErrInvalidPartition) {
		return WrapExitError(ExitCommandError, "bad arguments", err)
	}
	return err
}
