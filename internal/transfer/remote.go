package transfer

import (
	"context"
	"time"

	"eeapi/internal/logging"
	"eeapi/internal/types"
)

// RemoteAgent pushes files to the eeadm host over scp or sftp.
type RemoteAgent struct {
	protocol string
	uploader Uploader
}

func (a *RemoteAgent) Transfer(ctx context.Context, req types.TransferRequest) (types.TransferResult, error) {
	if res := validate(req); res != nil {
		return *res, nil
	}

	upload := a.uploader.UploadSCP
	if a.protocol == types.ProtocolSFTP {
		upload = a.uploader.UploadSFTP
	}

	log := logging.WithFields(map[string]interface{}{"protocol": a.protocol, "src": req.SourcePath, "dst": req.DestinationPath})
	start := time.Now()
	res, err := upload(ctx, req.SourcePath, req.DestinationPath)
	if err != nil {
		log.Error("transfer failed", map[string]interface{}{"err": err})
		return res, err
	}
	if !res.Success() {
		log.Warn("transfer refused", map[string]interface{}{"code": res.Code, "msg": res.Msg})
		return res, nil
	}
	log.Debug("transferred", map[string]interface{}{"duration_ms": time.Since(start).Milliseconds()})
	return res, nil
}
