package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/uehara/kakine/internal/entities"
	"github.com/uehara/kakine/internal/infrastructure/config"
	"github.com/uehara/kakine/internal/infrastructure/database"
	"github.com/uehara/kakine/internal/infrastructure/metrics"
	"github.com/uehara/kakine/internal/repositories/postgres"
	"github.com/uehara/kakine/internal/services/access"
	"github.com/uehara/kakine/internal/services/reconcile"
)

var (
	envFlag  string
	pg       *database.Postgres
	recorder metrics.Recorder

	userIDFlag  int64
	roleIDsFlag []int64
	termIDFlag  int64
	termIDsFlag []int64

	termNameFlag string
	usersFlag    []string
	rolesFlag    []int64
)

var rootCmd = &cobra.Command{
	Use:   "kakine",
	Short: "Term-based access control for content items",
	Long: `kakine decides which viewers may see content classified under
restricted taxonomy terms, and manages the per-term grant lists.`,
	PersistentPreRun: setupDatabase,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pg != nil {
			pg.Close()
		}
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a viewer may see a term",
	Run:   runCheck,
}

var checkItemCmd = &cobra.Command{
	Use:   "check-item",
	Short: "Check whether a viewer may see an item classified under terms",
	Run:   runCheckItem,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the grant changes a desired ACL would apply to a term",
	Run:   runPlan,
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a desired ACL to a term",
	Run:   runApply,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")

	checkCmd.Flags().Int64Var(&userIDFlag, "user", 0, "Viewer user ID")
	checkCmd.Flags().Int64SliceVar(&roleIDsFlag, "roles", nil, "Viewer role IDs")
	checkCmd.Flags().Int64Var(&termIDFlag, "term", 0, "Term ID to check")
	checkCmd.MarkFlagRequired("term")

	checkItemCmd.Flags().Int64Var(&userIDFlag, "user", 0, "Viewer user ID")
	checkItemCmd.Flags().Int64SliceVar(&roleIDsFlag, "roles", nil, "Viewer role IDs")
	checkItemCmd.Flags().Int64SliceVar(&termIDsFlag, "terms", nil, "Term IDs the item is classified under")

	for _, cmd := range []*cobra.Command{planCmd, applyCmd} {
		cmd.Flags().StringVar(&termNameFlag, "term-name", "", "Name of the term to reconcile")
		cmd.Flags().StringSliceVar(&usersFlag, "users", nil, "Usernames granted access")
		cmd.Flags().Int64SliceVar(&rolesFlag, "roles", nil, "Role IDs granted access")
		cmd.MarkFlagRequired("term-name")
	}

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(checkItemCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}

func setupDatabase(cmd *cobra.Command, args []string) {
	if err := config.InitConfig(envFlag); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pg, err = database.NewPostgres(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if cfg.Metrics.Enabled {
		exporter := metrics.NewPrometheusExporter(metrics.NewCollector())
		recorder = exporter

		mux := http.NewServeMux()
		mux.Handle("/metrics", exporter.Handler())
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}
}

func newEvaluator() *access.Evaluator {
	return access.NewEvaluatorWithMetrics(postgres.NewPostgresGrantRepository(pg.DB), recorder)
}

func newReconciler() *reconcile.Reconciler {
	return reconcile.NewReconcilerWithMetrics(
		postgres.NewPostgresGrantRepository(pg.DB),
		postgres.NewPostgresTermRepository(pg.DB),
		postgres.NewPostgresUserRepository(pg.DB),
		recorder,
	)
}

func runCheck(cmd *cobra.Command, args []string) {
	viewer := &entities.Viewer{UserID: userIDFlag, RoleIDs: roleIDsFlag}

	allowed, err := newEvaluator().CanViewTerm(context.Background(), viewer, termIDFlag)
	if err != nil {
		log.Fatalf("Check failed: %v", err)
	}

	printDecision(allowed)
}

func runCheckItem(cmd *cobra.Command, args []string) {
	viewer := &entities.Viewer{UserID: userIDFlag, RoleIDs: roleIDsFlag}
	item := &entities.Item{TermIDs: termIDsFlag}

	allowed, err := newEvaluator().CanViewItem(context.Background(), viewer, item)
	if err != nil {
		log.Fatalf("Check failed: %v", err)
	}

	printDecision(allowed)
}

func runPlan(cmd *cobra.Command, args []string) {
	_, delta, err := reconcileDesired(newReconciler())
	if err != nil {
		log.Fatalf("Plan failed: %v", err)
	}

	printDelta(delta)
}

func runApply(cmd *cobra.Command, args []string) {
	reconciler := newReconciler()

	termID, delta, err := reconcileDesired(reconciler)
	if err != nil {
		log.Fatalf("Apply failed: %v", err)
	}

	if delta.IsEmpty() {
		fmt.Println("Nothing to do: stored grants already match")
		return
	}

	if err := reconciler.Apply(context.Background(), termID, delta); err != nil {
		log.Fatalf("Apply failed: %v", err)
	}

	printDelta(delta)
	fmt.Println("Applied")
}

func reconcileDesired(reconciler *reconcile.Reconciler) (int64, *entities.GrantDelta, error) {
	desired := &entities.DesiredACL{
		TermName:  termNameFlag,
		Usernames: usersFlag,
		RoleIDs:   rolesFlag,
	}
	return reconciler.Reconcile(context.Background(), desired)
}

func printDecision(allowed bool) {
	if allowed {
		fmt.Println("allowed")
		return
	}
	fmt.Println("denied")
	os.Exit(1)
}

func printDelta(delta *entities.GrantDelta) {
	fmt.Printf("users to add:    %s\n", formatIDs(delta.UsersToAdd))
	fmt.Printf("users to remove: %s\n", formatIDs(delta.UsersToRemove))
	fmt.Printf("roles to add:    %s\n", formatIDs(delta.RolesToAdd))
	fmt.Printf("roles to remove: %s\n", formatIDs(delta.RolesToRemove))
}

func formatIDs(ids []int64) string {
	if len(ids) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return strings.Join(parts, ", ")
}
