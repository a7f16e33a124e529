package scoring

// FilterWritableFields drops the target and thresholds from obs unless the
// grant allows modifying them. Dropped fields are unset rather than null so
// an upsert keeps whatever is stored.
func FilterWritableFields(obs RawObservation, grant Grant) RawObservation {
	if grant.CanModifyThresholds {
		return obs
	}
	obs.TargetValue = Unset()
	obs.ThresholdRed = Unset()
	obs.ThresholdYellow = Unset()
	return obs
}
