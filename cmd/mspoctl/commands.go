package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/forestlens/mspo-maps/internal/polygonclient"
	"github.com/forestlens/mspo-maps/internal/polygonstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// connect builds an API client, logging in when no session id is configured.
func connect(ctx context.Context) (*polygonclient.Client, error) {
	c, err := polygonclient.New(viper.GetString("server"), polygonclient.WithSession(viper.GetString("session")))
	if err != nil {
		return nil, err
	}
	if viper.GetString("session") != "" {
		return c, nil
	}

	user := viper.GetString("username")
	if user == "" {
		return nil, errors.New("no session configured: set --session or --username/--password")
	}
	if err := c.Login(ctx, user, viper.GetString("password")); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return c, nil
}

// openStore returns a repository synced with the server.
func openStore(ctx context.Context) (*polygonstore.Store, error) {
	c, err := connect(ctx)
	if err != nil {
		return nil, err
	}
	s := polygonstore.New(polygonstore.WithGateway(c))
	if _, err := s.Sync(ctx, nil); err != nil {
		return nil, err
	}
	return s, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and print the session id for MSPO_SESSION",
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.Set("session", "")
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.SessionID())
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var severities, causes []string
	var from, to string
	var minArea, maxArea float64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List polygons matching a filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}

			var f polygonstore.Filter
			for _, d := range []struct {
				flag string
				val  string
				dst  **time.Time
			}{{"from", from, &f.DetectedFrom}, {"to", to, &f.DetectedTo}} {
				if d.val == "" {
					continue
				}
				t, ok := polygonstore.ParseDate(d.val)
				if !ok {
					return fmt.Errorf("--%s: invalid date %q", d.flag, d.val)
				}
				*d.dst = &t
			}
			for _, v := range severities {
				f.Severities = append(f.Severities, polygonstore.Severity(v))
			}
			for _, v := range causes {
				f.Causes = append(f.Causes, polygonstore.Cause(v))
			}
			if cmd.Flags().Changed("min-area") {
				f.MinArea = &minArea
			}
			if cmd.Flags().Changed("max-area") {
				f.MaxArea = &maxArea
			}

			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"polygons": s.Filtered(f),
				"stats":    s.FilteredStats(f),
			})
		},
	}
	cmd.Flags().StringSliceVar(&severities, "severity", nil, "Severities to keep")
	cmd.Flags().StringSliceVar(&causes, "cause", nil, "Causes to keep")
	cmd.Flags().StringVar(&from, "from", "", "Earliest detected date")
	cmd.Flags().StringVar(&to, "to", "", "Latest detected date")
	cmd.Flags().Float64Var(&minArea, "min-area", 0, "Minimum area in hectares")
	cmd.Flags().Float64Var(&maxArea, "max-area", 0, "Maximum area in hectares")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.geojson>",
		Short: "Import a GeoJSON FeatureCollection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}

			s := polygonstore.New(polygonstore.WithGateway(c))
			report, err := s.Import(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d polygon(s)\n", report.Imported)
			for _, e := range report.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), e)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every polygon as GeoJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			s := polygonstore.New(polygonstore.WithGateway(c))
			data, err := s.Export(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func statsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise polygons by severity, cause and month",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			if days > 0 {
				return printJSON(cmd.OutOrStdout(), s.StatsByTimeRange(days))
			}
			return printJSON(cmd.OutOrStdout(), s.Stats())
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Only count polygons detected in the last N days")
	return cmd
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <id>",
		Short: "Compute area, perimeter, centroid and compactness of a polygon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			res, err := s.Analyze(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}
