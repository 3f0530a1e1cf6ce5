package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Chicago")
	if err != nil {
		panic(err)
	}
}

// force the clock into the portal's timezone (Bay County sits in the
// Central zone) so filing dates and request timestamps line up with
// what the clerk's office shows, no matter where the run happens
func Now() time.Time {
	return time.Now().In(Location)
}
