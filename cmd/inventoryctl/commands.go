package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/inventario-bom/internal/bootstrap"
	"github.com/jhoicas/inventario-bom/internal/domain/entity"
	"github.com/jhoicas/inventario-bom/pkg/config"
	"github.com/jhoicas/inventario-bom/pkg/jwt"
	"github.com/jhoicas/inventario-bom/pkg/logger"
)

var (
	cfg  *config.Config
	log  *logger.Logger
	deps *bootstrap.Container

	waitConversion bool
	pollInterval   time.Duration
	tokenUser      string
	tokenRole      string
	tokenMinutes   int

	rootCmd = &cobra.Command{
		Use:          "inventoryctl",
		Short:        "Mantenimiento del inventario: reconciliación de stock y conversión legada",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("cargar configuración: %w", err)
			}
			log = logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if deps != nil {
				deps.Close()
			}
		},
	}

	rebuildCmd = &cobra.Command{
		Use:   "rebuild [item-id]",
		Short: "Recalcula el stock de un ítem desde su historial",
		Args:  cobra.ExactArgs(1),
		RunE:  runRebuild,
	}

	rebuildAllCmd = &cobra.Command{
		Use:   "rebuild-all",
		Short: "Recalcula el stock de todo el catálogo",
		RunE:  runRebuildAll,
	}

	convertCmd = &cobra.Command{
		Use:   "convert",
		Short: "Convierte las relaciones legadas pendientes al modelo de linaje/BOM",
		Long: `Crea un job de conversión y lo ejecuta en este proceso. El comando no termina
hasta que el job finaliza; con --wait imprime el progreso mientras tanto.`,
		RunE: runConvert,
	}

	convertStatusCmd = &cobra.Command{
		Use:   "convert-status [job-id]",
		Short: "Muestra el estado de un job de conversión",
		Args:  cobra.ExactArgs(1),
		RunE:  runConvertStatus,
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Emite un token JWT firmado con JWT_SECRET (desarrollo y automatizaciones)",
		RunE:  runToken,
	}
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(rebuildAllCmd)
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().BoolVar(&waitConversion, "wait", false, "Imprime el progreso hasta que el job termine")
	convertCmd.Flags().DurationVar(&pollInterval, "poll", 2*time.Second, "Intervalo entre lecturas de progreso")
	rootCmd.AddCommand(convertStatusCmd)
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenUser, "user", "inventoryctl", "ID de usuario del token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", jwt.RoleViewer, "Rol: admin, operador o consulta")
	tokenCmd.Flags().IntVar(&tokenMinutes, "minutes", 0, "Vigencia en minutos (0 = JWT_EXPIRATION_MINUTES)")
}

// openDeps conecta el almacenamiento solo para los comandos que lo usan.
func openDeps(cmd *cobra.Command) error {
	var err error
	deps, err = bootstrap.New(cmd.Context(), cfg, log, false)
	return err
}

func runRebuild(cmd *cobra.Command, args []string) error {
	if err := openDeps(cmd); err != nil {
		return err
	}
	res, err := deps.RebuildUC.RebuildItemStock(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if res.Updated {
		fmt.Fprintf(out, "%s: stock %s -> %s\n", res.ItemID, res.PreviousValue, res.NewValue)
	} else {
		fmt.Fprintf(out, "%s: sin cambios (%s)\n", res.ItemID, res.NewValue)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(out, "  omitido: %s\n", s)
	}
	return nil
}

func runRebuildAll(cmd *cobra.Command, args []string) error {
	if err := openDeps(cmd); err != nil {
		return err
	}
	sum, err := deps.RebuildUC.RebuildAllStock(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ítems: %d  actualizados: %d  fallidos: %d\n", sum.Items, sum.Updated, sum.Failed)
	for _, e := range sum.Errors {
		fmt.Fprintf(out, "  error: %s\n", e)
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d ítems no se pudieron reconciliar", sum.Failed)
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	if err := openDeps(cmd); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobID, err := deps.ConversionUC.Trigger(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	log.Info().Str("job_id", jobID).Msg("conversión iniciada desde la CLI")
	fmt.Fprintf(out, "job %s encolado\n", jobID)

	done := make(chan struct{})
	go func() {
		deps.ConversionUC.Wait()
		close(done)
	}()

	if waitConversion {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-done:
				break loop
			case <-ticker.C:
				if job, err := deps.ConversionUC.GetStatus(context.Background(), jobID); err == nil {
					fmt.Fprintf(out, "  %s %d%% %s\n", job.Status, job.PercentComplete, job.CurrentPhase)
				}
			case <-ctx.Done():
				// La señal no cancela el job; los registros ya convertidos quedan marcados.
				fmt.Fprintln(out, "interrupción recibida, esperando a que termine el job")
				<-done
				break loop
			}
		}
	} else {
		<-done
	}

	job, err := deps.ConversionUC.GetStatus(context.Background(), jobID)
	if err != nil {
		return err
	}
	printJob(out, job)
	if job.Status == entity.JobFailed {
		return fmt.Errorf("job %s falló: %s", job.ID, job.ErrorMessage)
	}
	return nil
}

func runConvertStatus(cmd *cobra.Command, args []string) error {
	if err := openDeps(cmd); err != nil {
		return err
	}
	job, err := deps.ConversionUC.GetStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printJob(cmd.OutOrStdout(), job)
	return nil
}

func printJob(out io.Writer, job *entity.ConversionJob) {
	fmt.Fprintf(out, "job:      %s\n", job.ID)
	fmt.Fprintf(out, "estado:   %s (%d%%)\n", job.Status, job.PercentComplete)
	if job.CurrentPhase != "" {
		fmt.Fprintf(out, "fase:     %s\n", job.CurrentPhase)
	}
	if job.StartTime != nil {
		fmt.Fprintf(out, "inicio:   %s\n", job.StartTime.Format(time.RFC3339))
	}
	if job.EndTime != nil {
		fmt.Fprintf(out, "fin:      %s\n", job.EndTime.Format(time.RFC3339))
	}
	for _, class := range entity.ConversionClasses {
		c := job.Counters(class)
		fmt.Fprintf(out, "%-9s convertidos %d, errores %d\n", class+":", c.Converted, c.Errors)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "error:    %s\n", job.ErrorMessage)
	}
}

func runToken(cmd *cobra.Command, args []string) error {
	switch tokenRole {
	case jwt.RoleAdmin, jwt.RoleOperator, jwt.RoleViewer:
	default:
		return fmt.Errorf("rol desconocido %q", tokenRole)
	}
	minutes := tokenMinutes
	if minutes <= 0 {
		minutes = cfg.JWT.Expiration
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, tokenUser, tokenRole, cfg.JWT.Issuer, minutes)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
