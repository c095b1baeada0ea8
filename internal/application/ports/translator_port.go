package ports

// Translator define el puerto de localización de mensajes.
// El núcleo solo emite claves simbólicas y argumentos posicionales; el adaptador
// decide el idioma (según el usuario) y el texto final.
type Translator interface {
	Translate(userID, key string, args ...any) string
}

// KeyTranslator devuelve la clave tal cual; se usa cuando no hay catálogo configurado.
type KeyTranslator struct{}

// Translate devuelve key.
func (KeyTranslator) Translate(_, key string, _ ...any) string { return key }
