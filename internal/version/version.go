package version

// Version is the running settings schema and application version. It is a var
// so release builds can stamp it:
//
//	go build -ldflags "-X github.com/lotas/tabcounter/internal/version.Version=0.6.1"
var Version = "0.6.0"
