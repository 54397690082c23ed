package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/recordgraph/internal/engine"
	"github.com/roach88/recordgraph/internal/ir"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opUpsert = "upsert"
)

// WriteResult is the record as stored after a write.
type WriteResult struct {
	Op      string      `json:"op"`
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Created *bool       `json:"created,omitempty"`
	Deleted bool        `json:"deleted,omitempty"`
	Record  ir.IRObject `json:"record,omitempty"`
}

// RenderText prints a summary line and the resulting record.
func (r WriteResult) RenderText(w io.Writer) error {
	verb := r.Op + "d"
	if r.Created != nil && !*r.Created {
		verb = "updated"
	}
	fmt.Fprintf(w, "✓ %s %s %s\n", verb, r.Type, r.ID)
	if r.Record == nil {
		return nil
	}
	b, err := r.Record.MarshalJSON()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(b))
	return nil
}

type writeFlags struct {
	payload string
	file    string
	method  string
}

// NewWriteCommand creates the create, update or upsert command.
func NewWriteCommand(rootOpts *RootOptions, op string) *cobra.Command {
	var wf writeFlags

	cmd := &cobra.Command{
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(rootOpts, op, &wf, args, cmd)
		},
	}

	switch op {
	case opCreate:
		cmd.Use = "create <type>"
		cmd.Short = "Create a record"
		cmd.Args = cobra.ExactArgs(1)
	case opUpdate:
		cmd.Use = "update <type> <id>"
		cmd.Short = "Merge a payload into an existing record"
		cmd.Long = `Merge a payload into an existing record. With --method PATCH (the
default) omitted properties keep their values; with PUT they are reset.`
		cmd.Args = cobra.ExactArgs(2)
	case opUpsert:
		cmd.Use = "upsert <type> <id>"
		cmd.Short = "Update a record, or create it when the id is unknown"
		cmd.Args = cobra.ExactArgs(2)
	}

	cmd.Flags().StringVar(&wf.payload, "payload", "", "record payload as a JSON object")
	cmd.Flags().StringVarP(&wf.file, "file", "f", "", "read the payload from a JSON or YAML file")
	if op != opCreate {
		cmd.Flags().StringVar(&wf.method, "method", "PATCH", "merge method: PATCH or PUT")
	}
	return cmd
}

func runWrite(opts *RootOptions, op string, wf *writeFlags, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	partial, err := wf.read()
	if err != nil {
		return opts.commandError(f, ErrCodeBadInput, err)
	}
	if op != opCreate {
		switch strings.ToUpper(wf.method) {
		case "PATCH", "PUT":
		default:
			return opts.commandError(f, ErrCodeBadInput, fmt.Errorf("--method: expected PATCH or PUT, got %q", wf.method))
		}
	}

	eng, err := opts.openEngine(f)
	if err != nil {
		return err
	}

	typeName := args[0]
	result := WriteResult{Op: op, Type: typeName}
	force := engine.ForceNulls(wf.method)

	switch op {
	case opCreate:
		result.Record, err = eng.Create(typeName, partial)
	case opUpdate:
		result.ID = args[1]
		result.Record, err = eng.Update(typeName, args[1], partial, force)
	case opUpsert:
		var created bool
		result.ID = args[1]
		result.Record, created, err = eng.Upsert(typeName, args[1], partial, force)
		result.Created = &created
	}
	if err != nil {
		return f.Fail(err)
	}

	if result.ID == "" {
		if t, err := eng.Directory().MustTable(typeName); err == nil {
			if v, ok := result.Record.Get(t.Key().Name); ok {
				result.ID = ir.Text(v)
			}
		}
	}
	return f.Success(result)
}

// read decodes the payload from --payload or --file. JSON keeps every
// decimal digit; YAML files go through yaml.v3.
func (wf *writeFlags) read() (ir.IRObject, error) {
	switch {
	case wf.payload != "" && wf.file != "":
		return nil, fmt.Errorf("--payload and --file are mutually exclusive")
	case wf.payload != "":
		return decodeJSONObject([]byte(wf.payload))
	case wf.file != "":
		data, err := os.ReadFile(wf.file)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(filepath.Ext(wf.file), ".json") {
			return decodeJSONObject(data)
		}
		var m map[string]any
		if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil && err != io.EOF {
			return nil, fmt.Errorf("%s: %w", wf.file, err)
		}
		return ir.ObjectFromGo(m)
	default:
		return ir.IRObject{}, nil
	}
}

func decodeJSONObject(data []byte) (ir.IRObject, error) {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("payload: expected a JSON object")
	}
	return obj, nil
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete a record",
		Long: `Delete a record. Children that referenced it keep existing with their
foreign key set to null.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			eng, err := rootOpts.openEngine(f)
			if err != nil {
				return err
			}
			if err := eng.Delete(args[0], args[1]); err != nil {
				return f.Fail(err)
			}
			return f.Success(WriteResult{Op: "delete", Type: args[0], ID: args[1], Deleted: true})
		},
	}
	return cmd
}
