// Package config loads the daemon's §6 option set — pool sizing, the
// pool-manager socket, node lists, and isolation defaults — the way the
// teacher's cmd/server/main.go loads its own Config: stdlib flag, a
// typed struct, a DefaultConfig() baseline. No viper/cobra: the teacher
// never reaches for a config framework, so neither does the fabric.
package config

import "flag"

// Config carries the daemon's command-line configuration: the pool
// manager and sequencer endpoints, the coordinator's own isolation
// defaults, and the §6 pool-sizing/node-list options the original's
// GUCs would have supplied.
type Config struct {
	PoolSocket    string
	OracleAddr    string
	TraceHTTPAddr string

	MaxPoolSize           int
	MinPoolSize           int
	PersistentConnections bool

	DataNodeHosts string
	DataNodePorts string
	CoordHosts    string
	CoordPorts    string

	PreferredDataNodes string
	PrimaryDataNode    string

	IsolationLevel string
}

// Default returns the daemon's defaults.
func Default() Config {
	return Config{
		PoolSocket:     "/var/run/laura/poolmgr.sock",
		OracleAddr:     "localhost:7070",
		MaxPoolSize:    64,
		MinPoolSize:    4,
		IsolationLevel: "READ COMMITTED",
	}
}

// RegisterFlags declares a flag for every field of cfg against fs,
// seeding each flag's default from cfg's current value, and returns a
// closure that writes the parsed values back into cfg. Callers must
// call fs.Parse before invoking the closure.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) func() {
	poolSocket := fs.String("pool-socket", cfg.PoolSocket, "Unix socket path for the connection pool manager")
	oracleAddr := fs.String("oracle-addr", cfg.OracleAddr, "gRPC address of the GXID/timestamp sequencer")
	traceHTTPAddr := fs.String("trace-http-addr", cfg.TraceHTTPAddr, "Address to serve /debug/requests tracing on (disabled if empty)")
	maxPoolSize := fs.Int("max-pool-size", cfg.MaxPoolSize, "Maximum number of connections the pool manager may hold per backend")
	minPoolSize := fs.Int("min-pool-size", cfg.MinPoolSize, "Minimum number of connections the pool manager keeps warm per backend")
	persistentConnections := fs.Bool("persistent-connections", cfg.PersistentConnections, "Keep backend connections open across client disconnects")
	dataNodeHosts := fs.String("data-node-hosts", cfg.DataNodeHosts, "Comma-separated data node hostnames, in node_set order")
	dataNodePorts := fs.String("data-node-ports", cfg.DataNodePorts, "Comma-separated data node ports, aligned with -data-node-hosts")
	coordHosts := fs.String("coord-hosts", cfg.CoordHosts, "Comma-separated coordinator node hostnames")
	coordPorts := fs.String("coord-ports", cfg.CoordPorts, "Comma-separated coordinator node ports, aligned with -coord-hosts")
	preferredDataNodes := fs.String("preferred-data-nodes", cfg.PreferredDataNodes, "Comma-separated data nodes preferred for REPLICATED reads")
	primaryDataNode := fs.String("primary-data-node", cfg.PrimaryDataNode, "Data node written first for REPLICATED writes")
	isolationLevel := fs.String("isolation-level", cfg.IsolationLevel, "Default isolation level for the BEGIN broadcast")

	return func() {
		cfg.PoolSocket = *poolSocket
		cfg.OracleAddr = *oracleAddr
		cfg.TraceHTTPAddr = *traceHTTPAddr
		cfg.MaxPoolSize = *maxPoolSize
		cfg.MinPoolSize = *minPoolSize
		cfg.PersistentConnections = *persistentConnections
		cfg.DataNodeHosts = *dataNodeHosts
		cfg.DataNodePorts = *dataNodePorts
		cfg.CoordHosts = *coordHosts
		cfg.CoordPorts = *coordPorts
		cfg.PreferredDataNodes = *preferredDataNodes
		cfg.PrimaryDataNode = *primaryDataNode
		cfg.IsolationLevel = *isolationLevel
	}
}
