package wdsession

// ResetPolicy selects which session-local stores a Reset clears. The
// zero value clears nothing; most callers want ClearAll. A session's
// policy is fixed at creation time.
type ResetPolicy struct {
	ClearLocalStorage   bool
	ClearSessionStorage bool
	// ClearCookies deletes cookies reachable from the page that is
	// current when Reset runs. Cookies set on other domains the session
	// visited earlier survive; WebDriver backends expose no
	// delete-regardless-of-domain primitive.
	ClearCookies bool
}

// The two standard policies. ClearAll is the default for new sessions;
// KeepAll opts out entirely, for tests that need storage to survive a
// reset.
var (
	ClearAll = ResetPolicy{ClearLocalStorage: true, ClearSessionStorage: true, ClearCookies: true}
	KeepAll  = ResetPolicy{}
)

// apply clears each enabled store on conn. Backend failures propagate
// unchanged.
func (p ResetPolicy) apply(conn Conn) error {
	if p.ClearLocalStorage {
		if err := conn.ClearLocalStorage(); err != nil {
			return err
		}
	}
	if p.ClearSessionStorage {
		if err := conn.ClearSessionStorage(); err != nil {
			return err
		}
	}
	if p.ClearCookies {
		if err := conn.DeleteCookies(); err != nil {
			return err
		}
	}
	return nil
}
