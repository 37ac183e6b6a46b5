package buildiso

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// masterISO runs xorrisofs over the staging tree. The command blocks
// until completion; a non-zero exit fails the build.
func masterISO(isoPath, stageDir string, extraOpts []string) error {
	args := append([]string{}, extraOpts...)
	args = append(args,
		"-V", "BOOTFORGE_INSTALL",
		"-o", isoPath,
		"-b", "isolinux/isolinux.bin",
		"-c", "isolinux/boot.cat",
		"-no-emul-boot",
		"-boot-load-size", "4",
		"-boot-info-table",
		stageDir,
	)

	logrus.WithField("iso", isoPath).Infof("Running xorrisofs %s", strings.Join(args, " "))
	cmd := exec.Command("xorrisofs", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("xorrisofs failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	logrus.WithField("iso", isoPath).Info("ISO build complete")
	return nil
}
