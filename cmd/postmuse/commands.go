package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thinkscotty/postmuse/internal/keystore"
	"github.com/thinkscotty/postmuse/internal/knowledge"
	"github.com/thinkscotty/postmuse/internal/models"
	"github.com/thinkscotty/postmuse/internal/pipeline"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// modeFlags lets a single run use a persona or platform other than the saved one.
type modeFlags struct {
	dark, light bool
	platform    string
}

func (f *modeFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.dark, "dark", false, "Use the PostDemon persona for this run")
	cmd.Flags().BoolVar(&f.light, "light", false, "Use the PostAngel persona for this run")
	cmd.Flags().StringVar(&f.platform, "platform", "", "Target platform for this run (x or linkedin)")
	cmd.MarkFlagsMutuallyExclusive("dark", "light")
}

func (f *modeFlags) apply(a *app) {
	switch {
	case f.dark:
		a.mode.SetTemporaryMode(true)
	case f.light:
		a.mode.SetTemporaryMode(false)
	}
	if f.platform != "" {
		a.mode.SetTemporaryPlatform(models.ParsePlatform(f.platform))
	}
}

func analyzeCmd(withApp withAppFn) *cobra.Command {
	var mf modeFlags
	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Extract a post from a screenshot and look for a reply opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			mf.apply(a)

			observer := pipeline.WithObserver(func(stage pipeline.Stage, detail string) {
				if detail != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", stage, detail)
				} else {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", stage)
				}
			})
			p := pipeline.New(a.llm, a.topics, a.history, observer)

			res, err := p.Analyze(cmd.Context(), a.mode.Snapshot(), image)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}),
	}
	mf.register(cmd)
	return cmd
}

func createPostCmd(withApp withAppFn) *cobra.Command {
	var (
		mf           modeFlags
		instructions string
	)
	cmd := &cobra.Command{
		Use:   "create-post <topic>",
		Short: "Write a promotional post for one topic",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			mf.apply(a)
			out, err := a.pipeline.CreatePost(cmd.Context(), a.mode.Snapshot(), args[0], instructions)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Post)
			return nil
		}),
	}
	mf.register(cmd)
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "Special instructions for this post")
	return cmd
}

func topicsCmd(withApp withAppFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Manage the knowledge base",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List topics",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			a.seedSamples()
			topics, err := a.topics.List()
			if err != nil {
				return err
			}
			if len(topics) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No topics in", a.topics.Dir())
				return nil
			}
			for _, t := range topics {
				fmt.Fprintf(cmd.OutOrStdout(), "%-40s %6d bytes\n", t.FileName, len(t.Content))
			}
			return nil
		}),
	}

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a topic",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			t, err := lookupTopic(a, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), t.Content)
			return nil
		}),
	}

	var ext string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty topic",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			t, err := a.topics.Create(args[0], ext)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Created", filepath.Join(a.topics.Dir(), t.FileName))
			return nil
		}),
	}
	create.Flags().StringVar(&ext, "ext", knowledge.ExtText, "File extension (.txt or .md)")

	edit := &cobra.Command{
		Use:   "save <name>",
		Short: "Replace a topic's content with stdin",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			t, err := lookupTopic(a, args[0])
			if err != nil {
				return err
			}
			content, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			_, err = a.topics.Save(t.FileName, string(content))
			return err
		}),
	}

	var all bool
	del := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a topic, or every topic with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if all {
				n, err := a.topics.DeleteAll()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d topics\n", n)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("topic name required (or --all)")
			}
			t, err := lookupTopic(a, args[0])
			if err != nil {
				return err
			}
			return a.topics.Delete(t.FileName)
		}),
	}
	del.Flags().BoolVar(&all, "all", false, "Delete every topic")

	var opts knowledge.ImportOptions
	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Copy a text file into the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			t, err := a.topics.Import(filepath.Base(args[0]), mime.TypeByExtension(filepath.Ext(args[0])), f, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Imported", t.FileName)
			return nil
		}),
	}
	imp.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Replace an existing topic")
	imp.Flags().BoolVar(&opts.ForceText, "force", false, "Import even if the file does not look like text")
	imp.Flags().StringVar(&opts.Extension, "ext", knowledge.ExtText, "Extension for files without .txt/.md")

	cmd.AddCommand(list, show, create, edit, del, imp)
	return cmd
}

func lookupTopic(a *app, name string) (models.Topic, error) {
	if knowledge.IsTopicFile(name) {
		return a.topics.Read(name)
	}
	return a.topics.Get(name)
}

func historyCmd(withApp withAppFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or edit generated content history",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			entries, err := a.history.List()
			if err != nil {
				return err
			}
			for _, e := range entries {
				persona := "PostAngel"
				if e.IsDarkMode {
					persona = "PostDemon"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-6s %-9s %s\n",
					e.ID, e.Timestamp.Format("2006-01-02 15:04"), e.Source, persona, oneLine(e.Content))
			}
			return nil
		}),
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one history entry",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			found, err := a.history.Delete(args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no history entry %s", args[0])
			}
			return nil
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all history",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			return a.history.Clear()
		}),
	}

	cmd.AddCommand(del, clearCmd)
	return cmd
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}

func settingsCmd(withApp withAppFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show resolved settings",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			keys, err := a.keys.Configured()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"preferences": a.prefs.Snapshot(),
				"keys":        keys,
			})
		}),
	}

	var endpoint, model string
	override := &cobra.Command{
		Use:   "override <capability>",
		Short: "Set the endpoint and model for a capability; empty values inherit",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			c, ok := models.ParseCapability(args[0])
			if !ok {
				return fmt.Errorf("unknown capability %q", args[0])
			}
			return a.prefs.SetOverride(c, endpoint, model)
		}),
	}
	override.Flags().StringVar(&endpoint, "endpoint", "", "Chat completions URL")
	override.Flags().StringVar(&model, "model", "", "Model name")

	useGlobal := &cobra.Command{
		Use:   "use-global-key <true|false>",
		Short: "Whether capabilities without a key fall back to the global key",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			switch strings.ToLower(args[0]) {
			case "true", "on", "yes":
				return a.prefs.SetUseGlobalAPIKey(true)
			case "false", "off", "no":
				return a.prefs.SetUseGlobalAPIKey(false)
			}
			return fmt.Errorf("expected true or false, got %q", args[0])
		}),
	}

	cmd.AddCommand(override, useGlobal)
	return cmd
}

func keysCmd(withApp withAppFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys and the server token",
	}

	set := &cobra.Command{
		Use:   "set <capability>",
		Short: "Store an API key read from stdin; an empty line removes it",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			c, ok := models.ParseCapability(args[0])
			if !ok {
				return fmt.Errorf("unknown capability %q", args[0])
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "API key for %s: ", c)
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return err
			}
			return a.keys.Set(keystore.KeyName(c), strings.TrimSpace(line))
		}),
	}

	rotate := &cobra.Command{
		Use:   "rotate-token",
		Short: "Replace the HTTP API bearer token and print it",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			token, err := a.keys.RotateServerToken()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		}),
	}

	cmd.AddCommand(set, rotate)
	return cmd
}

func modeCmd(withApp withAppFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mode [angel|demon]",
		Short: "Show or set the saved persona",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if len(args) == 1 {
				switch strings.ToLower(args[0]) {
				case "angel", "light":
					if err := a.prefs.SetDarkMode(false); err != nil {
						return err
					}
				case "demon", "dark":
					if err := a.prefs.SetDarkMode(true); err != nil {
						return err
					}
				default:
					return fmt.Errorf("unknown mode %q", args[0])
				}
			}
			mc := a.mode.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "%s on %s (limit %d characters)\n", mc.AppName(), mc.PlatformName(), mc.CharacterLimit())
			return nil
		}),
	}

	platform := &cobra.Command{
		Use:   "platform <x|linkedin>",
		Short: "Set the saved target platform",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			return a.prefs.SetPlatform(models.ParsePlatform(args[0]))
		}),
	}

	cmd.AddCommand(platform)
	return cmd
}
