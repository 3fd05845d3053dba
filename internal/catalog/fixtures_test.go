package catalog

import "strings"

const sampleHeader = "Origen,Unidad,CxC,Área,Proceso,Tarifa,Monto,Requisitos,Correo,Celular,Códigos de pago"

func sampleCSV(rows ...string) []byte {
	return []byte(sampleHeader + "\n" + strings.Join(rows, "\n") + "\n")
}
