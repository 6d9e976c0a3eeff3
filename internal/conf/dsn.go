package conf

import (
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLDSN builds a go-sql-driver DSN. Times are parsed and stored as UTC so
// normalized dates round-trip unchanged.
func (m *MySQLSettings) MySQLDSN() string {
	cfg := mysql.NewConfig()
	cfg.User = m.Username
	cfg.Passwd = m.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.Host, m.Port)
	cfg.DBName = m.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Location returns host:port/database for log output without credentials.
func (m *MySQLSettings) Location() string {
	return net.JoinHostPort(m.Host, m.Port) + "/" + m.Database
}
