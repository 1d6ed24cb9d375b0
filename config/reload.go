package config

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultReloadInterval = time.Second

// Reloader re-reads a configuration file and publishes it to a Slot.
// A document that fails to load leaves the previous snapshot in place.
type Reloader struct {
	Path     string
	Interval time.Duration
	Slot     *Slot
	Log      logrus.FieldLogger

	// OnError, when set, receives every failed reload in addition to the log.
	OnError func(error)

	lastMod  time.Time
	lastSize int64
}

// NewReloader watches path and publishes into slot. The snapshot already in slot
// is taken as the current version of the file.
func NewReloader(path string, slot *Slot, interval time.Duration, log logrus.FieldLogger) *Reloader {
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	r := &Reloader{Path: path, Interval: interval, Slot: slot, Log: log}
	if cur := slot.Latest(); cur != nil && cur.Source == path {
		if info, err := os.Stat(path); err == nil && info.ModTime().Equal(cur.ModTime) {
			r.lastMod, r.lastSize = info.ModTime(), info.Size()
		}
	}
	return r
}

// Run polls until ctx is cancelled. It never touches anything but the slot.
func (r *Reloader) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	r.Log.Debugf("config reloader watching %s every %s", r.Path, r.Interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Reload(); err != nil {
				r.Log.Warnf("config reload failed, keeping last good config: %v", err)
				if r.OnError != nil {
					r.OnError(err)
				}
			}
		}
	}
}

// Reload checks the file once. It reports whether a new snapshot was published.
func (r *Reloader) Reload() (bool, error) {
	info, err := os.Stat(r.Path)
	if err != nil {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.ModTime().Equal(r.lastMod) && info.Size() == r.lastSize {
		return false, nil
	}

	snap, err := Load(r.Path)
	if err != nil {
		// remember the broken version so it is not re-parsed every tick
		r.lastMod, r.lastSize = info.ModTime(), info.Size()
		return false, err
	}
	r.lastMod, r.lastSize = info.ModTime(), info.Size()

	old := r.Slot.Latest()
	changes := Diff(old, snap)
	r.Slot.Publish(snap)

	if len(changes) == 0 {
		r.Log.Debugf("config reloaded, no changes")
		return true, nil
	}
	r.Log.Infof("config reloaded, %d change(s)", len(changes))
	for _, c := range changes {
		r.Log.Infof("config changed: %s", c)
	}
	return true, nil
}

// Diff lists the fields that differ between two snapshots as "name: old → new".
func Diff(old, cur *Snapshot) []string {
	if old == nil || cur == nil {
		return nil
	}
	var changes []string
	add := func(name string, a, b interface{}) {
		if !reflect.DeepEqual(a, b) {
			changes = append(changes, fmt.Sprintf("%s: %v → %v", name, a, b))
		}
	}

	add("model_name", old.ModelName, cur.ModelName)
	add("stages", old.Stages, cur.Stages)
	add("face", old.Face, cur.Face)
	add("style", old.Style, cur.Style)
	add("psych", old.Psych, cur.Psych)
	add("detect", old.Detect, cur.Detect)
	add("img_load_size", old.ImgLoadSize, cur.ImgLoadSize)
	add("output_size", fmt.Sprintf("%dx%d", old.OutputWidth, old.OutputHeight),
		fmt.Sprintf("%dx%d", cur.OutputWidth, cur.OutputHeight))
	add("save_output_bool", old.SaveOutput, cur.SaveOutput)
	add("save_output_path", old.SaveOutputPath, cur.SaveOutputPath)
	add("use_virtual_cam", old.UseVirtualCam, cur.UseVirtualCam)
	add("virtual_cam_device", old.VirtualCamDevice, cur.VirtualCamDevice)
	add("virtual_cam_fps", old.VirtualCamFPS, cur.VirtualCamFPS)
	add("gpu_ids", old.GPUIDs, cur.GPUIDs)
	return changes
}
