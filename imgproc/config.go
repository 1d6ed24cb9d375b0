package imgproc

// Adjustments applied to frames routed to a virtual camera
type VirtualCamConfig struct {
	Brightness uint8 // Added to the HSV value channel, saturating at 255
	RGB        bool  // Convert from OpenCV's BGR order to RGB
	Mirror     bool  // Flip horizontally
}

// Defaults matching what OBS and browser clients expect from a webcam
func DefaultVirtualCamConfig() VirtualCamConfig {
	return VirtualCamConfig{Brightness: 50, RGB: true, Mirror: true}
}
