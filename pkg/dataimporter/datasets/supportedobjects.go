package datasets

type SupportedObjects struct {
	ServiceAlerts bool
	TripUpdates   bool
}
