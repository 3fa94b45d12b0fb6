package cli

import (
	"context"
	"fmt"

	"github.com/tama-audit/auditor/internal/common"
	"github.com/tama-audit/auditor/internal/models"
)

func (a *App) loginCmd(ctx context.Context) {
	username, err := GetSimpleText(a.reader, "Nom d'utilisateur", a.out)
	if err != nil {
		a.log.Error(ctx, "read username failed", "error", err)
		return
	}
	password, err := GetPassword(a.out)
	if err != nil {
		a.log.Error(ctx, "read password failed", "error", err)
		return
	}
	defer common.WipeByteArray(password)

	res := a.session.Login(ctx, models.LoginCredentials{Username: username, Password: password})
	if !res.Success {
		fmt.Fprintln(a.out, res.Message)
	}
}

func (a *App) registerCmd(ctx context.Context) {
	username, err := GetSimpleText(a.reader, "Nom d'utilisateur", a.out)
	if err != nil {
		a.log.Error(ctx, "read username failed", "error", err)
		return
	}
	name, err := GetSimpleText(a.reader, "Nom complet", a.out)
	if err != nil {
		a.log.Error(ctx, "read name failed", "error", err)
		return
	}
	email, err := GetSimpleText(a.reader, "Email (optionnel)", a.out)
	if err != nil {
		a.log.Error(ctx, "read email failed", "error", err)
		return
	}
	password, err := GetPassword(a.out)
	if err != nil {
		a.log.Error(ctx, "read password failed", "error", err)
		return
	}
	defer common.WipeByteArray(password)

	res := a.session.Register(ctx, models.RegistrationData{
		Username: username,
		Password: password,
		Name:     name,
		Email:    email,
	})
	if !res.Success {
		fmt.Fprintln(a.out, res.Message)
		return
	}
	fmt.Fprintln(a.out, "Compte créé, vous pouvez vous connecter")
}

func (a *App) logoutCmd(ctx context.Context) {
	a.session.Logout(ctx)
}
