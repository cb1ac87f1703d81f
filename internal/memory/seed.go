package memory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/smartfix-ai/braincore/internal/embeddings"
)

// seedRecord is one starter entry for the knowledge base.
type seedRecord struct {
	problemText    string
	problemType    string
	deviceCategory string
	errorCodes     []string
	steps          []string
	confidence     float64
	successRate    float64
}

// seedRecords is the curated starter set of common consumer-device
// problems, loaded into an empty store so the system answers something
// useful before it has learned anything.
var seedRecords = []seedRecord{
	{
		problemText:    "tv screen is black but power light is on",
		problemType:    "display",
		deviceCategory: "television",
		errorCodes:     []string{"BLACK_SCREEN", "NO_DISPLAY"},
		steps: []string{
			"Check if the TV is in standby mode and press the power button",
			"Try different input sources (HDMI, AV)",
			"Reset the TV to factory settings",
			"Check the backlight settings",
			"If the problem persists, contact a technician",
		},
		confidence:  0.95,
		successRate: 0.88,
	},
	{
		problemText:    "tv has no sound",
		problemType:    "audio",
		deviceCategory: "television",
		errorCodes:     []string{"NO_AUDIO", "MUTED"},
		steps: []string{
			"Check if the TV is muted and press the mute button",
			"Increase the volume using the remote or TV buttons",
			"Check the audio output settings",
			"Check external speakers if connected",
			"Reset audio settings to default",
		},
		confidence:  0.92,
		successRate: 0.85,
	},
	{
		problemText:    "tv remote not working",
		problemType:    "remote",
		deviceCategory: "television",
		errorCodes:     []string{"REMOTE_DEAD", "NO_RESPONSE"},
		steps: []string{
			"Replace the remote batteries with new ones",
			"Clean the remote buttons",
			"Check if the remote is paired with the TV",
			"Reset the remote by removing the batteries for 5 minutes",
			"Purchase a new remote if the problem persists",
		},
		confidence:  0.90,
		successRate: 0.82,
	},
	{
		problemText:    "phone battery drains quickly",
		problemType:    "battery",
		deviceCategory: "smartphone",
		errorCodes:     []string{"BATTERY_DRAIN"},
		steps: []string{
			"Check battery usage in settings",
			"Close background apps",
			"Reduce screen brightness",
			"Turn off location services when not needed",
			"Replace the battery if old",
		},
		confidence:  0.93,
		successRate: 0.87,
	},
	{
		problemText:    "phone won't charge",
		problemType:    "charging",
		deviceCategory: "smartphone",
		errorCodes:     []string{"CHARGING_ERROR", "NO_CHARGE"},
		steps: []string{
			"Try a different charging cable",
			"Clean the charging port with compressed air",
			"Try a different power adapter",
			"Restart the phone",
			"Contact a technician for port repair",
		},
		confidence:  0.91,
		successRate: 0.84,
	},
	{
		problemText:    "phone is slow and laggy",
		problemType:    "performance",
		deviceCategory: "smartphone",
		errorCodes:     []string{"SLOW_PERFORMANCE"},
		steps: []string{
			"Restart the phone",
			"Clear app cache and data",
			"Uninstall unused apps",
			"Update the phone software",
			"Free up storage space",
		},
		confidence:  0.89,
		successRate: 0.83,
	},
	{
		problemText:    "smartwatch not syncing with phone",
		problemType:    "sync",
		deviceCategory: "smartwatch",
		errorCodes:     []string{"SYNC_ERROR", "PAIRING_FAILED"},
		steps: []string{
			"Restart both the watch and the phone",
			"Forget the device and re-pair",
			"Check that Bluetooth is enabled",
			"Update the watch and phone apps",
			"Reset the watch to factory settings",
		},
		confidence:  0.87,
		successRate: 0.81,
	},
	{
		problemText:    "smart bulb not connecting to wifi",
		problemType:    "network",
		deviceCategory: "iot",
		errorCodes:     []string{"WIFI_CONNECTION_FAILED", "PAIRING_ERROR"},
		steps: []string{
			"Ensure the bulb is in pairing mode",
			"Check the WiFi password is correct",
			"Use a 2.4GHz WiFi network",
			"Move the bulb closer to the router",
			"Reset the bulb to factory settings",
		},
		confidence:  0.84,
		successRate: 0.77,
	},
	{
		problemText:    "smart speaker not responding to voice",
		problemType:    "voice",
		deviceCategory: "iot",
		errorCodes:     []string{"VOICE_NOT_RECOGNIZED", "MICROPHONE_ERROR"},
		steps: []string{
			"Check the microphone is not muted",
			"Clean the microphone area",
			"Restart the speaker",
			"Check the voice assistant settings",
			"Update the speaker firmware",
		},
		confidence:  0.83,
		successRate: 0.76,
	},
}

// Seed loads the starter knowledge base into an empty store. A non-empty
// store is left untouched.
func Seed(ctx context.Context, store *Store, embedder embeddings.Provider, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("checking store size: %w", err)
	}
	if count > 0 {
		logger.Debug("skipping seed, store not empty", zap.Int("records", count))
		return nil
	}

	texts := make([]string, len(seedRecords))
	for i, seed := range seedRecords {
		texts[i] = seed.problemText
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding seed records: %w", err)
	}
	if len(vectors) != len(seedRecords) {
		return fmt.Errorf("expected %d seed embeddings, got %d", len(seedRecords), len(vectors))
	}

	for i, seed := range seedRecords {
		steps := make([]SolutionStep, len(seed.steps))
		for j, description := range seed.steps {
			steps[j] = SolutionStep{Number: j + 1, Description: description}
		}
		record := ProblemRecord{
			ProblemText:    seed.problemText,
			ProblemType:    seed.problemType,
			DeviceCategory: seed.deviceCategory,
			ErrorCodes:     seed.errorCodes,
			Steps:          steps,
			Confidence:     seed.confidence,
			SuccessRate:    seed.successRate,
		}
		if _, err := store.Insert(ctx, record, vectors[i]); err != nil {
			return fmt.Errorf("inserting seed record %q: %w", seed.problemText, err)
		}
	}

	logger.Info("seeded problem memory", zap.Int("records", len(seedRecords)))
	return nil
}
