package models

import "time"

// ParteStatus is the lifecycle state of a work order. Transitions are
// unrestricted; CERRADO stamps closed_at and leaving it clears the stamp.
type ParteStatus string

const (
	StatusAbierto   ParteStatus = "ABIERTO"
	StatusEnTramite ParteStatus = "EN TRÁMITE"
	StatusCerrado   ParteStatus = "CERRADO"
)

// Valid reports whether the status is one of the known states.
func (s ParteStatus) Valid() bool {
	switch s {
	case StatusAbierto, StatusEnTramite, StatusCerrado:
		return true
	}
	return false
}

// ActuacionType is the closed set of action categories logged against a parte.
type ActuacionType string

const (
	TypeLlamadaRealizada   ActuacionType = "Llamada Realizada"
	TypeLlamadaRecibida    ActuacionType = "Llamada Recibida"
	TypeCorreoEnviado      ActuacionType = "Correo Enviado"
	TypeCorreoRecibido     ActuacionType = "Correo Recibido"
	TypeDesplazamiento     ActuacionType = "Desplazamiento"
	TypeFormacion          ActuacionType = "Formación"
	TypeInvestigacion      ActuacionType = "Investigación"
	TypeInformeCorporativo ActuacionType = "Informe Corporativo"
	TypeModificaciones     ActuacionType = "Modificaciones"
	TypeActualizacion      ActuacionType = "Actualización"
	TypeCargasProceso      ActuacionType = "Cargas/Proceso"
	TypeIncidencias        ActuacionType = "Incidencias"
	TypeOtros              ActuacionType = "Otros"
	TypeTraslado           ActuacionType = "Traslado"
	TypeTratamientoFichero ActuacionType = "Tratamiento de Fichero"
)

// ActuacionTypes lists every category, in display order.
var ActuacionTypes = []ActuacionType{
	TypeLlamadaRealizada, TypeLlamadaRecibida, TypeCorreoEnviado,
	TypeCorreoRecibido, TypeDesplazamiento, TypeFormacion,
	TypeInvestigacion, TypeInformeCorporativo, TypeModificaciones,
	TypeActualizacion, TypeCargasProceso, TypeIncidencias,
	TypeOtros, TypeTraslado, TypeTratamientoFichero,
}

// Valid reports whether the type is a known category.
func (t ActuacionType) Valid() bool {
	for _, known := range ActuacionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Actuacion is a time-stamped action logged against a parte. It has no
// independent lifecycle outside its parent.
type Actuacion struct {
	ID        string        `json:"id"`
	ParteID   int64         `json:"parteId"`
	Type      ActuacionType `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  int           `json:"duration"` // minutes
	Notes     string        `json:"notes,omitempty"`
	User      string        `json:"user"`
}

// Parte is a work order with its denormalized child actions and totals.
type Parte struct {
	ID        int64       `json:"id"`
	Title     string      `json:"title"`
	Status    ParteStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	ClosedAt  *time.Time  `json:"closedAt,omitempty"`
	CreatedBy string      `json:"createdBy"`
	UserID    string      `json:"userId"`

	PDFFile       string `json:"pdfFile,omitempty"`
	PDFFileSigned string `json:"pdfFileSigned,omitempty"`

	Actuaciones      []Actuacion `json:"actuaciones"`
	TotalTime        int         `json:"totalTime"`
	TotalActuaciones int         `json:"totalActuaciones"`
}

// Client is a contact record. Client management is a placeholder surface in
// the application and is carried as-is.
type Client struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	DNI    string `json:"dni,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	UserID string `json:"userId"`
}
