// Command codelens indexes a workspace and answers semantic, structural,
// and duplicate-detection queries over it, either directly or as an MCP
// server on stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/codelensdev/codelens/internal/mcp"
	"github.com/codelensdev/codelens/internal/workspace"
)

var flagRoot string

var rootCmd = &cobra.Command{
	Use:   "codelens",
	Short: "Code-aware semantic index and search",
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&flagRoot, "root", "C", ".", "workspace root")
	rootCmd.AddCommand(indexCmd, searchCmd, dupesCmd, structuralCmd, statusCmd, lsCmd, mcpCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// open resolves the workspace for the current invocation.
func open(ctx context.Context) (*workspace.Workspace, error) {
	return workspace.Open(ctx, flagRoot, workspace.Options{})
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the workspace index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		if !ws.IsLeader() {
			fmt.Println("another process is indexing this workspace; waiting on its progress is not supported")
			return nil
		}

		<-ws.BuildDone()
		status, err := ws.Status(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("indexed %d files\n", status.FilesTotal)
		return nil
	},
}

var (
	flagTopK   int
	flagMinSim float64
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		results, err := ws.SemanticSearch(cmd.Context(), args[0], flagTopK, flagMinSim)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("no results")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, r := range results {
			fmt.Fprintf(w, "%.3f\t%s:%d\t%s %s\n",
				r.Score, r.Chunk.FilePath, r.Chunk.StartLine, r.Chunk.Kind, r.Chunk.Name)
		}
		return w.Flush()
	},
}

var (
	flagDupeSim  float64
	flagMinBytes int
	flagDupeFile string
)

var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "Find near-identical code chunks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		if flagDupeFile != "" {
			matches, err := ws.FindDuplicatesInFile(cmd.Context(), flagDupeFile, flagDupeSim)
			if err != nil {
				return err
			}
			for _, m := range matches {
				fmt.Printf("%.3f  %s:%d  %s %s\n",
					m.Score, m.Chunk.FilePath, m.Chunk.StartLine, m.Chunk.Kind, m.Chunk.Name)
			}
			return nil
		}

		clusters, err := ws.FindAllDuplicates(cmd.Context(), flagDupeSim, flagMinBytes)
		if err != nil {
			return err
		}
		for i, c := range clusters {
			fmt.Printf("cluster %d (%d chunks):\n", i+1, len(c.Chunks))
			for _, ch := range c.Chunks {
				fmt.Printf("  %s:%d-%d  %s %s\n",
					ch.FilePath, ch.StartLine, ch.EndLine, ch.Kind, ch.Name)
			}
		}
		if len(clusters) == 0 {
			fmt.Println("no duplicates found")
		}
		return nil
	},
}

var (
	flagFiles    []string
	flagLanguage string
)

var structuralCmd = &cobra.Command{
	Use:   "structural <pattern>",
	Short: "Match declarations by kind and name glob, e.g. 'function:Handle*'",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		chunks, err := ws.StructuralQuery(cmd.Context(), args[0], flagFiles, flagLanguage)
		if err != nil {
			return err
		}
		for _, ch := range chunks {
			fmt.Printf("%s:%d-%d  %s %s\n",
				ch.FilePath, ch.StartLine, ch.EndLine, ch.Kind, ch.Name)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		status, err := ws.Status(cmd.Context())
		if err != nil {
			return err
		}
		role := "reader"
		if ws.IsLeader() {
			role = "leader"
		}
		fmt.Printf("root:     %s\n", ws.Root())
		fmt.Printf("role:     %s\n", role)
		fmt.Printf("ready:    %v\n", status.Ready)
		fmt.Printf("files:    %d indexed, %d embedded\n", status.FilesTotal, status.FilesEmbedded)
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List indexed files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		files, err := ws.ListFiles(cmd.Context())
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Println(f)
		}
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server for this workspace on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := mcp.NewServer(cmd.Context(), flagRoot, workspace.Options{})
		if err != nil {
			return err
		}
		return srv.Serve(cmd.Context())
	},
}

func init() {
	searchCmd.Flags().IntVarP(&flagTopK, "top-k", "k", 0, "maximum results (default from config)")
	searchCmd.Flags().Float64Var(&flagMinSim, "min-similarity", 0.3, "minimum similarity threshold")

	dupesCmd.Flags().Float64Var(&flagDupeSim, "min-similarity", 0.95, "similarity threshold for duplicates")
	dupesCmd.Flags().IntVar(&flagMinBytes, "min-bytes", 0, "ignore chunks smaller than this")
	dupesCmd.Flags().StringVar(&flagDupeFile, "file", "", "restrict to similarities against one file")

	structuralCmd.Flags().StringSliceVar(&flagFiles, "files", nil, "restrict to these workspace-relative paths")
	structuralCmd.Flags().StringVar(&flagLanguage, "language", "", "language filter")
}
