// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analytics

import "math"

// PerformanceScore computes the weighted employee performance score.
//
// # Description
//
// Combines three normalized components with fixed weights:
//
//   - Speed (30%): items per hour against a 70 items/hour target, capped at 100.
//   - Accuracy (50%): the accuracy score, already on a 0–100 scale.
//   - Error penalty (20%): 100 minus 50 points per percentage point of error
//     rate, floored at 0.
//
// The result is rounded to two decimal places. A perfect shift (70 items/hour,
// zero errors, 100 accuracy) scores exactly 100.00.
//
// # Inputs
//
//   - itemsPerHour: Average scanned items per hour over the window.
//   - errorRate: Error percentage (0–100) over the window.
//   - accuracyScore: Accuracy percentage (0–100) over the window.
//
// # Outputs
//
//   - float64: Score in [0, 100], two decimal places.
func PerformanceScore(itemsPerHour, errorRate, accuracyScore float64) float64 {
	speedScore := math.Min(itemsPerHour/70*100, 100)
	errorPenalty := math.Max(0, 100-errorRate*50)

	finalScore := speedScore*0.3 + accuracyScore*0.5 + errorPenalty*0.2
	return math.Round(finalScore*100) / 100
}
