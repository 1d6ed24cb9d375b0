/*
Copyright © 2022 Daniils Petrovs <thedanpetrov@gmail.com>

*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/DaniruKun/visuai/config"
	"github.com/DaniruKun/visuai/logger"
	"github.com/DaniruKun/visuai/pipeline"
	"github.com/DaniruKun/visuai/sink"
	"github.com/DaniruKun/visuai/stage"
	"github.com/DaniruKun/visuai/utils"
)

const DefaultConfigPath = "config.yaml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "visuai",
	Short:         "visuai",
	Long:          `Applies real-time effects to a webcam feed and sends the result to a preview window, a virtual camera and a recording.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		device, _ := cmd.Flags().GetInt("camera")
		interval, _ := cmd.Flags().GetDuration("reload-interval")
		debug, _ := cmd.Flags().GetBool("debug")
		title, _ := cmd.Flags().GetString("window")

		logger.SetDebug(debug)
		return run(cmd.Context(), configPath, device, interval, title)
	},
}

func run(ctx context.Context, configPath string, device int, interval time.Duration, title string) error {
	session := uuid.NewString()
	log := logger.Log.WithField("session", utils.ShortID(session))
	start := time.Now()

	snap, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if snap.UseGPU() {
		log.Infof("compute device: GPU %v", snap.GPUIDs)
	} else {
		log.Info("compute device: CPU")
	}
	log.Infof("output %dx%d, stages %v", snap.OutputWidth, snap.OutputHeight, snap.StageTokens())

	camera, err := pipeline.OpenCamera(device)
	if err != nil {
		return err
	}
	fps := camera.FPS()
	log.Infof("camera %d opened at %.0f fps", device, fps)

	o := &pipeline.Orchestrator{
		Camera:   camera,
		Slot:     config.NewSlot(snap),
		Registry: stage.Defaults(),
		Preview:  sink.NewWindow(title),
		Log:      log,
	}

	if snap.SaveOutput {
		path, err := utils.GetRecordingPath(snap.SaveOutputPath, start, session)
		if err != nil {
			log.Warnf("recording disabled: %v", err)
		} else if rec, err := sink.OpenRecorder(path, fps, snap.OutputWidth, snap.OutputHeight); err != nil {
			log.Warnf("recording disabled: %v", err)
		} else {
			log.Infof("recording to %s", path)
			o.Recorder = rec
		}
	}

	if snap.UseVirtualCam {
		// ffmpeg is stopped by closing its input during shutdown, not by ctx
		vcam, err := sink.OpenVirtualCam(context.Background(), snap.VirtualCamDevice, snap.OutputWidth, snap.OutputHeight, snap.VirtualCamFPS)
		if err != nil {
			log.Warnf("virtual camera disabled: %v", err)
		} else {
			log.Infof("virtual camera on %s at %d fps", snap.VirtualCamDevice, snap.VirtualCamFPS)
			o.VirtualCam = vcam
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reloader := config.NewReloader(configPath, o.Slot, interval, log)
	go reloader.Run(ctx)

	if err := o.Run(ctx); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"frames":   o.Stats().Frames,
		"duration": time.Since(start).Round(time.Second),
	}).Info("done")
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		logger.Log.Error(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", DefaultConfigPath, "Configuration file, watched for changes")
	rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level")
	rootCmd.Flags().Int("camera", 0, "Camera device index")
	rootCmd.Flags().Duration("reload-interval", config.DefaultReloadInterval, "How often to check the configuration file")
	rootCmd.Flags().String("window", "visuai", "Preview window title")
}
