package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kintree/pkg/errors"
	"github.com/matzehuels/kintree/pkg/store"
	"github.com/matzehuels/kintree/pkg/tree"
)

// newStoreCmd creates the store command group for managing records in
// the configured backend.
func newStoreCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage persons and relationships in the record store",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/kintree/config.toml)")

	cmd.AddCommand(
		newStoreListCmd(&configPath),
		newStoreAddPersonCmd(&configPath),
		newStoreRemovePersonCmd(&configPath),
		newStoreLinkCmd(&configPath),
		newStoreUnlinkCmd(&configPath),
		newStoreExportCmd(&configPath),
		newStoreImportCmd(&configPath),
	)
	return cmd
}

// withStore opens the configured store, runs fn, and closes it.
func withStore(ctx context.Context, configPath string, fn func(store.Store) error) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func newStoreListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all persons and relationships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configPath, func(st store.Store) error {
				ctx := cmd.Context()
				persons, err := st.ListPersons(ctx)
				if err != nil {
					return err
				}
				rels, err := st.ListRelationships(ctx)
				if err != nil {
					return err
				}

				fmt.Println(StyleTitle.Render(fmt.Sprintf("Persons (%d)", len(persons))))
				for _, p := range persons {
					printDetail("%s  %s", p.ID, p.DisplayName())
				}
				fmt.Println(StyleTitle.Render(fmt.Sprintf("Relationships (%d)", len(rels))))
				for _, r := range rels {
					printDetail("%s  %s %s %s", r.ID, r.From, iconArrow+" "+r.Kind+" "+iconArrow, r.To)
				}
				return nil
			})
		},
	}
}

func newStoreAddPersonCmd(configPath *string) *cobra.Command {
	var p tree.Person

	cmd := &cobra.Command{
		Use:   "add-person",
		Short: "Add a person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configPath, func(st store.Store) error {
				stored, err := st.AddPerson(cmd.Context(), p)
				if err != nil {
					return err
				}
				printSuccess("Added %s (%s)", stored.DisplayName(), stored.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&p.ID, "id", "", "person ID (generated when empty)")
	cmd.Flags().StringVar(&p.FirstName, "first", "", "first name")
	cmd.Flags().StringVar(&p.MiddleName, "middle", "", "middle name")
	cmd.Flags().StringVar(&p.LastName, "last", "", "last name")
	cmd.Flags().StringVar(&p.MaidenName, "maiden", "", "maiden name")
	cmd.Flags().StringVar(&p.BirthDate, "birth", "", "birth date")
	cmd.Flags().StringVar(&p.DeathDate, "death", "", "death date")
	cmd.Flags().StringVar(&p.BurialPlace, "burial", "", "burial place")
	cmd.Flags().StringVar(&p.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("first")
	return cmd
}

func newStoreRemovePersonCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-person <id>",
		Short: "Delete a person and every relationship referencing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configPath, func(st store.Store) error {
				if err := st.DeletePerson(cmd.Context(), args[0]); err != nil {
					return err
				}
				printSuccess("Removed %s", args[0])
				return nil
			})
		},
	}
}

func newStoreLinkCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "link <from> <kind> <to>",
		Short: "Add a relationship (kind: parent, father, mother, spouse, sibling)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configPath, func(st store.Store) error {
				rel := tree.Relationship{From: args[0], Kind: args[1], To: args[2]}
				stored, err := st.AddRelationship(cmd.Context(), rel)
				if err != nil {
					return err
				}
				printSuccess("Linked %s %s %s (%s)", stored.From, stored.Kind, stored.To, stored.ID)
				return nil
			})
		},
	}
}

func newStoreUnlinkCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <id>",
		Short: "Delete a relationship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configPath, func(st store.Store) error {
				if err := st.DeleteRelationship(cmd.Context(), args[0]); err != nil {
					return err
				}
				printSuccess("Unlinked %s", args[0])
				return nil
			})
		},
	}
}

func newStoreExportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the store contents to a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configPath, func(st store.Store) error {
				snap, err := st.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				if err := tree.WriteSnapshotFile(snap, args[0]); err != nil {
					return err
				}
				printFile(args[0])
				printSuccess("Exported %d persons, %d relationships", len(snap.Persons), len(snap.Relationships))
				return nil
			})
		},
	}
}

func newStoreImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a snapshot file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), *configPath, func(st store.Store) error {
				snap, err := tree.ReadSnapshotFile(args[0])
				if err != nil {
					return err
				}
				// Bad records are skipped with a warning; backend failures
				// abort the import.
				ctx := cmd.Context()
				var skipped int
				for _, p := range snap.Persons {
					if _, err := st.AddPerson(ctx, p); err != nil {
						if !errors.IsDataError(err) {
							return err
						}
						skipped++
						printWarning("person %s: %v", p.ID, err)
					}
				}
				for _, r := range snap.Relationships {
					if _, err := st.AddRelationship(ctx, r); err != nil {
						if !errors.IsDataError(err) {
							return err
						}
						skipped++
						printWarning("relationship %s: %v", r.ID, err)
					}
				}
				printSuccess("Imported %d records (%d skipped)",
					len(snap.Persons)+len(snap.Relationships)-skipped, skipped)
				return nil
			})
		},
	}
}
