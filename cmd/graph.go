package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/loomcms/loom/api"
	"github.com/loomcms/loom/internal/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect and mutate the content graph",
}

var (
	entityKind   string
	entityName   string
	entityData   string
	attachKind   string
	attachWeight int
	moveWeight   int
)

var entityAddCmd = &cobra.Command{
	Use:   "entity-add",
	Short: "Create an entity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeStore, err := openManager()
		if err != nil {
			return err
		}
		defer closeStore()

		var data map[string]any
		if entityData != "" {
			parsed, err := oj.ParseString(entityData)
			if err != nil {
				return fmt.Errorf("parse --data: %w", err)
			}
			obj, ok := parsed.(map[string]any)
			if !ok {
				return fmt.Errorf("--data must be a JSON object")
			}
			data = obj
		}

		e, err := m.CreateEntity(context.Background(), entityKind, entityName, data)
		if err != nil {
			return err
		}
		fmt.Println(e.ID)
		return nil
	},
}

var attachCmd = &cobra.Command{
	Use:   "attach <parent-id> <child-id>",
	Short: "Create an association between two entities",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeStore, err := openManager()
		if err != nil {
			return err
		}
		defer closeStore()

		a, err := m.Create(context.Background(), args[0], args[1], graph.Kind(attachKind), attachWeight)
		if err != nil {
			return err
		}
		fmt.Println(a.Path)
		return nil
	},
}

var detachCmd = &cobra.Command{
	Use:   "detach <association-id>",
	Short: "Remove an association",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeStore, err := openManager()
		if err != nil {
			return err
		}
		defer closeStore()
		return m.Remove(context.Background(), args[0])
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <child-id> <new-parent-id>",
	Short: "Reattach a child under a new parent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeStore, err := openManager()
		if err != nil {
			return err
		}
		defer closeStore()

		var w *int
		if cmd.Flags().Changed("weight") {
			w = &moveWeight
		}
		a, err := m.Move(context.Background(), args[0], args[1], w)
		if err != nil {
			return err
		}
		fmt.Println(a.Path)
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree <entity-id>",
	Short: "Print a content subtree as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, closeStore, err := openManager()
		if err != nil {
			return err
		}
		defer closeStore()

		root, err := buildTree(context.Background(), m, args[0], nil, map[string]struct{}{})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(root)
	},
}

// buildTree renders the subtree under entityID. attach is the association
// that reached entityID (nil at the root). The visited set bounds the walk:
// the manager keeps Contains acyclic, but a corrupted store must surface an
// error here instead of recursing forever.
func buildTree(ctx context.Context, m *graph.Manager, entityID string, attach *graph.Association, visited map[string]struct{}) (*api.TreeNode, error) {
	if _, seen := visited[entityID]; seen {
		return nil, &graph.IntegrityError{Reason: "contains cycle detected at entity " + entityID}
	}
	visited[entityID] = struct{}{}

	e, err := m.Entity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	node := &api.TreeNode{EntityID: e.ID, Name: e.SemanticName}
	if node.Name == "" {
		node.Name = e.ID
	}
	if attach != nil {
		node.Kind = string(attach.Kind)
		node.Weight = attach.Weight
		node.Path = attach.Path
	}
	children, err := m.Children(ctx, entityID)
	if err != nil {
		return nil, err
	}
	for _, a := range children {
		if a.Kind != graph.KindContains {
			continue
		}
		child, err := buildTree(ctx, m, a.ChildID, a, visited)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, *child)
	}
	return node, nil
}

func init() {
	entityAddCmd.Flags().StringVar(&entityKind, "kind", "page", "Entity kind")
	entityAddCmd.Flags().StringVar(&entityName, "name", "", "Semantic name (unique handle)")
	entityAddCmd.Flags().StringVar(&entityData, "data", "", "Entity data as a JSON object")

	attachCmd.Flags().StringVar(&attachKind, "kind", string(graph.KindContains), "Association kind")
	attachCmd.Flags().IntVar(&attachWeight, "weight", 0, "Ordering weight")

	moveCmd.Flags().IntVar(&moveWeight, "weight", 0, "Override weight on the new edge")

	graphCmd.AddCommand(entityAddCmd, attachCmd, detachCmd, moveCmd, treeCmd)
	rootCmd.AddCommand(graphCmd)
}
