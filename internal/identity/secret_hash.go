// Package identity はAmazon Cognitoとの連携を提供する。
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// 認証パラメータのキー
const (
	ParamUsername     = "USERNAME"
	ParamPassword     = "PASSWORD"
	ParamRefreshToken = "REFRESH_TOKEN"
	ParamSecretHash   = "SECRET_HASH"
)

// SecretHash はアプリクライアントシークレットを使ったSECRET_HASHを計算する。
// base64(HMAC-SHA256(key=clientSecret, message=username+clientID))。
// シークレットが未設定の場合は("", false)を返す。
func SecretHash(username, clientID, clientSecret string) (string, bool) {
	if clientSecret == "" {
		return "", false
	}
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), true
}

// AuthParams はbaseをコピーし、SECRET_HASHが計算できる場合のみ追加して返す。
// baseは変更しない。
func AuthParams(base map[string]string, username, clientID, clientSecret string) map[string]string {
	params := make(map[string]string, len(base)+1)
	for k, v := range base {
		params[k] = v
	}
	if hash, ok := SecretHash(username, clientID, clientSecret); ok {
		params[ParamSecretHash] = hash
	}
	return params
}
