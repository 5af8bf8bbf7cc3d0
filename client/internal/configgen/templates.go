package configgen

import (
	"fmt"

	"github.com/netbirdio/minion-installer/client/internal/layout"
	"github.com/netbirdio/minion-installer/client/system"
)

type script struct {
	name    string
	content string
}

func loggingConfig(l layout.Layout, logDir string) string {
	return fmt.Sprintf(`# Salt minion logging configuration

[loggers]
keys=root,salt

[handlers]
keys=console,file

[formatters]
keys=generic

[logger_root]
level=WARNING
handlers=console,file

[logger_salt]
level=WARNING
handlers=console,file
qualname=salt

[handler_console]
class=StreamHandler
args=(sys.stderr,)
level=WARNING
formatter=generic

[handler_file]
class=handlers.RotatingFileHandler
args=('%s', 'a', 10485760, 5)
level=WARNING
formatter=generic

[formatter_generic]
format=%%(asctime)s [%%(name)-15s][%%(levelname)-8s] %%(message)s
datefmt=%%Y-%%m-%%d %%H:%%M:%%S
`, l.Join(logDir, "minion.log"))
}

func scriptsFor(family system.Family, dirs layout.Dirs) []script {
	if family.IsWindows() {
		return []script{
			{name: "backup.ps1", content: fmt.Sprintf(windowsBackup, dirs.Config)},
			{name: "check_integrity.ps1", content: fmt.Sprintf(windowsIntegrity, dirs.Config, dirs.PKI)},
		}
	}
	return []script{
		{name: "backup.sh", content: fmt.Sprintf(unixBackup, dirs.Config)},
		{name: "check_integrity.sh", content: fmt.Sprintf(unixIntegrity, dirs.Config, dirs.PKI)},
	}
}

const unixBackup = `#!/bin/sh
# Archives the minion configuration, keeping the last 7 archives
set -e

CONF_DIR="%s"
BACKUP_DIR="/var/backups/salt"
TIMESTAMP=$(date +"%%Y%%m%%d_%%H%%M%%S")

mkdir -p "$BACKUP_DIR"
tar -czf "$BACKUP_DIR/minion-conf-$TIMESTAMP.tar.gz" -C "$(dirname "$CONF_DIR")" "$(basename "$CONF_DIR")"
echo "backup created: $BACKUP_DIR/minion-conf-$TIMESTAMP.tar.gz"

ls -1t "$BACKUP_DIR"/minion-conf-*.tar.gz 2>/dev/null | tail -n +8 | xargs -r rm -f
`

const unixIntegrity = `#!/bin/sh
# Verifies the minion installation files

CONF_FILE="%s/minion"
PKI_DIR="%s"
STATUS=0

if [ -f "$CONF_FILE" ]; then
    echo "[OK] $CONF_FILE found"
    if grep -q "^master:" "$CONF_FILE"; then
        echo "[OK] master is configured"
    else
        echo "[ERROR] master is not configured"
        STATUS=1
    fi
else
    echo "[ERROR] $CONF_FILE not found"
    STATUS=1
fi

if [ -d "$PKI_DIR" ]; then
    echo "[OK] $PKI_DIR found"
else
    echo "[ERROR] $PKI_DIR not found"
    STATUS=1
fi

if command -v salt-minion >/dev/null 2>&1; then
    echo "[OK] $(salt-minion --version)"
else
    echo "[WARN] salt-minion is not on PATH"
fi

exit $STATUS
`

const windowsBackup = `# Archives the minion configuration, keeping the last 7 archives
$ErrorActionPreference = "Stop"

$ConfDir = "%s"
$BackupDir = Join-Path $env:ProgramData "Salt Project\Backups"
$Timestamp = Get-Date -Format "yyyyMMdd_HHmmss"

New-Item -ItemType Directory -Force -Path $BackupDir | Out-Null
$Archive = Join-Path $BackupDir "minion-conf-$Timestamp.zip"
Compress-Archive -Path $ConfDir -DestinationPath $Archive
Write-Output "backup created: $Archive"

Get-ChildItem -Path $BackupDir -Filter "minion-conf-*.zip" |
    Sort-Object LastWriteTime -Descending |
    Select-Object -Skip 7 |
    Remove-Item -Force
`

const windowsIntegrity = `# Verifies the minion installation files
$ConfFile = Join-Path "%s" "minion"
$PkiDir = "%s"
$Status = 0

if (Test-Path $ConfFile) {
    Write-Output "[OK] $ConfFile found"
    if (Select-String -Path $ConfFile -Pattern "^master:" -Quiet) {
        Write-Output "[OK] master is configured"
    } else {
        Write-Output "[ERROR] master is not configured"
        $Status = 1
    }
} else {
    Write-Output "[ERROR] $ConfFile not found"
    $Status = 1
}

if (Test-Path $PkiDir) {
    Write-Output "[OK] $PkiDir found"
} else {
    Write-Output "[ERROR] $PkiDir not found"
    $Status = 1
}

exit $Status
`
