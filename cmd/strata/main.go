package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jacentio/strata/entity"
	"github.com/jacentio/strata/query"
	"github.com/jacentio/strata/storage"
)

type app struct {
	configPath  string
	kvPath      string
	dynamoTable string
	verbose     bool

	logger *zap.Logger
	engine *entity.Engine
}

func main() {
	a := &app{}
	root := a.rootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "strata",
		Short:         "Schema-driven entity store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "strata.yaml", "registry config file")
	root.PersistentFlags().StringVar(&a.kvPath, "kv", "", "sqlite file enabling the key-value driver")
	root.PersistentFlags().StringVar(&a.dynamoTable, "dynamo-table", "", "DynamoDB table enabling the object-store driver")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(a.createCmd(), a.getCmd(), a.deleteCmd(), a.queryCmd())
	return root
}

func (a *app) setup() error {
	var err error
	if a.verbose {
		a.logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		a.logger, err = cfg.Build()
	}
	if err != nil {
		return err
	}

	registry, err := entity.LoadRegistry(a.configPath)
	if err != nil {
		return err
	}

	opts := []storage.DispatcherOption{storage.WithLogger(a.logger)}
	if a.kvPath != "" {
		kv, err := storage.NewKeyValueDriver(a.kvPath)
		if err != nil {
			return err
		}
		opts = append(opts, storage.WithDriver(kv))
	}
	if a.dynamoTable != "" {
		awsCfg, err := config.LoadDefaultConfig(context.Background())
		if err != nil {
			return errors.Wrap(err, "load aws config")
		}
		client := dynamodb.NewFromConfig(awsCfg)
		opts = append(opts, storage.WithDriver(storage.NewObjectStoreDriver(client, a.dynamoTable)))
	}

	a.engine = entity.New(registry, storage.NewDispatcher(opts...),
		entity.WithLogger(a.logger),
		entity.WithSource("strata-cli"))
	return nil
}

func (a *app) createCmd() *cobra.Command {
	var data, actor string
	cmd := &cobra.Command{
		Use:   "create <target>",
		Short: "Create a record from a JSON payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload map[string]any
			if err := json.Unmarshal([]byte(data), &payload); err != nil {
				return errors.Wrap(err, "parse --data")
			}
			resp, err := a.engine.Create(cmd.Context(), map[string]any{
				"targetName": args[0],
				"payload":    payload,
				"actor":      actor,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "{}", "record payload as JSON")
	cmd.Flags().StringVar(&actor, "actor", "", "acting user recorded in meta")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <target> <key>",
		Short: "Fetch a record by key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := a.engine.Read(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, record)
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <target> <key>",
		Short: "Delete a record by key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.engine.Delete(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !removed {
				cmd.Println("not found")
				return nil
			}
			cmd.Println("deleted")
			return nil
		},
	}
}

func (a *app) queryCmd() *cobra.Command {
	var (
		wheres []string
		sorts  []string
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "query <target>",
		Short: "Query records with filters, sorts, and paging",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.engine.Query(args[0])
			if err != nil {
				return err
			}
			for _, w := range wheres {
				field, op, value, err := parseWhere(w)
				if err != nil {
					return err
				}
				b.Where(field, op, value)
			}
			for _, s := range sorts {
				field, dir := parseSort(s)
				b.Sort(field, dir)
			}
			b.Limit(limit).Offset(offset)

			result, err := b.Execute(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringArrayVarP(&wheres, "where", "w", nil, "filter as field:op:value (repeatable)")
	cmd.Flags().StringArrayVarP(&sorts, "sort", "s", nil, "sort as field or field:desc (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")
	return cmd
}

// parseWhere splits field:op:value, coercing the value to a number or
// bool when it parses as one.
func parseWhere(s string) (string, query.Op, any, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return "", "", nil, errors.Newf("bad filter %q, want field:op:value", s)
	}
	var value any = parts[2]
	if n, err := strconv.ParseFloat(parts[2], 64); err == nil {
		value = n
	} else if b, err := strconv.ParseBool(parts[2]); err == nil {
		value = b
	}
	return parts[0], query.Op(parts[1]), value, nil
}

func parseSort(s string) (string, query.Direction) {
	if field, ok := strings.CutSuffix(s, ":desc"); ok {
		return field, query.Desc
	}
	return strings.TrimSuffix(s, ":asc"), query.Asc
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
